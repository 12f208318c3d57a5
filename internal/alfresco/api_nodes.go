package alfresco

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// queryFromOpts converts a loose options object to query parameters
// (skipCount, maxItems, include, where, orderBy and friends).
func queryFromOpts(opts map[string]any) url.Values {
	if len(opts) == 0 {
		return nil
	}
	q := url.Values{}
	for k, v := range opts {
		switch vv := v.(type) {
		case []any:
			for _, item := range vv {
				q.Add(k, fmt.Sprint(item))
			}
		default:
			q.Set(k, fmt.Sprint(v))
		}
	}
	return q
}

func nodesAPI() *API {
	return &API{
		namespace: "nodes",
		methods: map[string]methodFunc{
			"getNode": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/nodes/"+url.PathEscape(nodeID), queryFromOpts(args.OptMap(1, "opts")), nil)
			},
			"listNodeChildren": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/nodes/"+url.PathEscape(nodeID)+"/children", queryFromOpts(args.OptMap(1, "opts")), nil)
			},
			"createNode": func(ctx context.Context, c *Client, args Args) (any, error) {
				parentID, err := args.String(0, "parentId")
				if err != nil {
					return nil, err
				}
				body, err := args.Map(1, "body")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPost, "/nodes/"+url.PathEscape(parentID)+"/children", nil, body)
			},
			"updateNode": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				body, err := args.Map(1, "body")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPut, "/nodes/"+url.PathEscape(nodeID), nil, body)
			},
			"deleteNode": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodDelete, "/nodes/"+url.PathEscape(nodeID), queryFromOpts(args.OptMap(1, "opts")), nil)
			},
			"moveNode": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				body, err := args.Map(1, "body")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPost, "/nodes/"+url.PathEscape(nodeID)+"/move", nil, body)
			},
			"copyNode": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				body, err := args.Map(1, "body")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPost, "/nodes/"+url.PathEscape(nodeID)+"/copy", nil, body)
			},
			"lockNode": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPost, "/nodes/"+url.PathEscape(nodeID)+"/lock", nil, args.OptMap(1, "body"))
			},
			"unlockNode": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPost, "/nodes/"+url.PathEscape(nodeID)+"/unlock", nil, nil)
			},
		},
	}
}
