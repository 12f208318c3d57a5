package alfresco

import (
	"context"
	"net/http"
	"net/url"
)

func commentsAPI() *API {
	return &API{
		namespace: "comments",
		methods: map[string]methodFunc{
			"listComments": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/nodes/"+url.PathEscape(nodeID)+"/comments", queryFromOpts(args.OptMap(1, "opts")), nil)
			},
			"createComment": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				body, err := args.Map(1, "body")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPost, "/nodes/"+url.PathEscape(nodeID)+"/comments", nil, body)
			},
			"updateComment": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				commentID, err := args.String(1, "commentId")
				if err != nil {
					return nil, err
				}
				body, err := args.Map(2, "body")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPut, "/nodes/"+url.PathEscape(nodeID)+"/comments/"+url.PathEscape(commentID), nil, body)
			},
			"deleteComment": func(ctx context.Context, c *Client, args Args) (any, error) {
				nodeID, err := args.String(0, "nodeId")
				if err != nil {
					return nil, err
				}
				commentID, err := args.String(1, "commentId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodDelete, "/nodes/"+url.PathEscape(nodeID)+"/comments/"+url.PathEscape(commentID), nil, nil)
			},
		},
	}
}
