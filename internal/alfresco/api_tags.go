package alfresco

import (
	"context"
	"net/http"
	"net/url"
)

func tagsAPI() *API {
	return &API{
		namespace: "tags",
		methods: map[string]methodFunc{
			"listTags": func(ctx context.Context, c *Client, args Args) (any, error) {
				return c.CoreAPI(ctx, http.MethodGet, "/tags", queryFromOpts(args.OptMap(0, "opts")), nil)
			},
			"getTag": func(ctx context.Context, c *Client, args Args) (any, error) {
				tagID, err := args.String(0, "tagId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/tags/"+url.PathEscape(tagID), nil, nil)
			},
			"listNodeTags": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/nodes/"+url.PathEscape(nodeID)+"/tags", queryFromOpts(args.OptMap(1, "opts")), nil)
			},
			"createNodeTag": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				body, err := args.Map(1, "body")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPost, "/nodes/"+url.PathEscape(nodeID)+"/tags", nil, body)
			},
			"deleteNodeTag": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				tagID, err := args.String(1, "tagId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodDelete, "/nodes/"+url.PathEscape(nodeID)+"/tags/"+url.PathEscape(tagID), nil, nil)
			},
		},
	}
}
