package alfresco

import "context"

func webscriptAPI() *API {
	return &API{
		namespace: "webscript",
		methods: map[string]methodFunc{
			"executeWebScript": func(ctx context.Context, c *Client, args Args) (any, error) {
				httpMethod, err := args.String(0, "httpMethod")
				if err != nil {
					return nil, err
				}
				scriptPath, err := args.String(1, "scriptPath")
				if err != nil {
					return nil, err
				}
				scriptArgs := args.OptMap(2, "scriptArgs")
				contextRoot := args.OptString(3, "contextRoot")
				return c.ExecuteWebScript(ctx, httpMethod, scriptPath, scriptArgs, contextRoot)
			},
		},
	}
}
