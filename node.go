package scraper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
)

// callFunctionOnNode calls function with this bound to node and decodes its
// JSON result into res. Arguments are passed by value.
func callFunctionOnNode(ctx context.Context, node *cdp.Node, function string, res interface{}, args ...interface{}) error {
	object, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
	if err != nil {
		return fmt.Errorf("resolve node: %w", err)
	}
	defer func() {
		_ = runtime.ReleaseObject(object.ObjectID).Do(ctx)
	}()

	arguments := make([]*runtime.CallArgument, len(args))
	for i, arg := range args {
		value, err := json.Marshal(arg)
		if err != nil {
			return fmt.Errorf("argument #%d: %w", i, err)
		}
		arguments[i] = &runtime.CallArgument{Value: value}
	}

	result, exception, err := runtime.CallFunctionOn(function).
		WithObjectID(object.ObjectID).
		WithArguments(arguments).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return err
	}
	if exception != nil {
		return exception
	}
	if res == nil || result == nil || len(result.Value) == 0 {
		return nil
	}
	return json.Unmarshal(result.Value, res)
}
