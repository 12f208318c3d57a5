package alfresco

import (
	"context"
	"net/http"
	"net/url"
)

func sitesAPI() *API {
	return &API{
		namespace: "sites",
		methods: map[string]methodFunc{
			"listSites": func(ctx context.Context, c *Client, args Args) (any, error) {
				return c.CoreAPI(ctx, http.MethodGet, "/sites", queryFromOpts(args.OptMap(0, "opts")), nil)
			},
			"getSite": func(ctx context.Context, c *Client, args Args) (any, error) {
				siteID, err := args.String(0, "siteId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/sites/"+url.PathEscape(siteID), queryFromOpts(args.OptMap(1, "opts")), nil)
			},
			"listSiteContainers": func(ctx context.Context, c *Client, args Args) (any, error) {
				siteID, err := args.String(0, "siteId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/sites/"+url.PathEscape(siteID)+"/containers", queryFromOpts(args.OptMap(1, "opts")), nil)
			},
			"listSiteMembers": func(ctx context.Context, c *Client, args Args) (any, error) {
				siteID, err := args.String(0, "siteId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/sites/"+url.PathEscape(siteID)+"/members", queryFromOpts(args.OptMap(1, "opts")), nil)
			},
		},
	}
}
