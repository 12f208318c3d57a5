package alfresco

import "context"

func searchAPI() *API {
	return &API{
		namespace: "search",
		methods: map[string]methodFunc{
			// search takes the full search request body (query, paging,
			// include, sort) and passes it through unmodified.
			"search": func(ctx context.Context, c *Client, args Args) (any, error) {
				body, err := args.Map(0, "body")
				if err != nil {
					return nil, err
				}
				return c.SearchAPI(ctx, body)
			},
		},
	}
}
