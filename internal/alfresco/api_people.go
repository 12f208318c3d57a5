package alfresco

import (
	"context"
	"net/http"
	"net/url"
)

func peopleAPI() *API {
	return &API{
		namespace: "people",
		methods: map[string]methodFunc{
			"getPerson": func(ctx context.Context, c *Client, args Args) (any, error) {
				personID, err := args.String(0, "personId")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodGet, "/people/"+url.PathEscape(personID), queryFromOpts(args.OptMap(1, "opts")), nil)
			},
			"listPeople": func(ctx context.Context, c *Client, args Args) (any, error) {
				return c.CoreAPI(ctx, http.MethodGet, "/people", queryFromOpts(args.OptMap(0, "opts")), nil)
			},
			"createPerson": func(ctx context.Context, c *Client, args Args) (any, error) {
				body, err := args.Map(0, "body")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPost, "/people", nil, body)
			},
			"updatePerson": func(ctx context.Context, c *Client, args Args) (any, error) {
				personID, err := args.String(0, "personId")
				if err != nil {
					return nil, err
				}
				body, err := args.Map(1, "body")
				if err != nil {
					return nil, err
				}
				return c.CoreAPI(ctx, http.MethodPut, "/people/"+url.PathEscape(personID), nil, body)
			},
		},
	}
}
