package alfresco

import (
	"context"
	"net/http"
	"net/url"
)

func groupsAPI() *API {
	return &API{
		namespace: "groups",
		methods: map[string]methodFunc{
			"listGroups": func(ctx context.Context, c *Client, args Args) (any, error) {
				return c.CoreAPI(ctx, http.MethodGet, "/groups", queryFromOpts(args.OptMap(0, "opts")), nil)
			},
			"getGroup": func(ctx context.Context, c *Client, args Args) (any, error) {
				groupID, err := args.String(0, "groupId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/groups/"+url.PathEscape(groupID), queryFromOpts(args.OptMap(1, "opts")), nil)
			},
			"createGroup": func(ctx context.Context, c *Client, args Args) (any, error) {
				body, err := args.Map(0, "body")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPost, "/groups", nil, body)
			},
			"deleteGroup": func(ctx context.Context, c *Client, args Args) (any, error) {
				groupID, err := args.String(0, "groupId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodDelete, "/groups/"+url.PathEscape(groupID), queryFromOpts(args.OptMap(1, "opts")), nil)
			},
			"listGroupMembers": func(ctx context.Context, c *Client, args Args) (any, error) {
				groupID, err := args.String(0, "groupId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/groups/"+url.PathEscape(groupID)+"/members", queryFromOpts(args.OptMap(1, "opts")), nil)
			},
		},
	}
}
