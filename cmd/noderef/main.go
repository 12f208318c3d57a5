package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "noderef",
	Short: "NodeRef CLI",
	Long:  "A CLI for managing repository connections and running console calls through a NodeRef server.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
		// Env var overrides are applied in newClient()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json, raw")
	rootCmd.PersistentFlags().StringVar(&outputField, "field", "", "Print only this field (use with -format=raw)")

	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(callCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(aiCmd())
}

func readPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

// --- account ---

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username>",
		Short: "Create a NodeRef account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := readPassword("Password: ")
			client := newClient()
			result, err := client.post("/v1/auth/register", map[string]any{
				"username": args[0],
				"password": password,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and save the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := readPassword("Password: ")
			client := newClient()
			result, err := client.post("/v1/auth/login", map[string]any{
				"username": args[0],
				"password": password,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			if tok, ok := result["token"].(string); ok {
				cfg.Token = tok
				if err := saveConfig(); err == nil {
					fmt.Fprintln(os.Stderr, "Session saved to config.")
				}
			}
			printResult(result)
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if _, err := client.post("/v1/auth/logout", nil); err != nil {
				printError(err.Error())
				return nil
			}
			cfg.Token = ""
			saveConfig() //nolint:errcheck
			printSuccess("Logged out.")
			return nil
		},
	}
}

// --- server ---

func serverCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "server", Short: "Manage registered repository servers"}

	addCmd := &cobra.Command{
		Use:   "add <base-url>",
		Short: "Register a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			authType, _ := cmd.Flags().GetString("auth")
			username, _ := cmd.Flags().GetString("username")
			label, _ := cmd.Flags().GetString("label")
			oidcHost, _ := cmd.Flags().GetString("oidc-host")
			oidcRealm, _ := cmd.Flags().GetString("oidc-realm")
			oidcClientID, _ := cmd.Flags().GetString("oidc-client-id")

			body := map[string]any{
				"baseUrl":  args[0],
				"authType": authType,
				"username": username,
				"label":    label,
			}
			if authType == "basic" {
				body["password"] = readPassword("Password: ")
			} else {
				body["oidcHost"] = oidcHost
				body["oidcRealm"] = oidcRealm
				body["oidcClientId"] = oidcClientID
			}

			client := newClient()
			result, err := client.post("/v1/servers", body)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	addCmd.Flags().String("auth", "basic", "Auth type: basic or openid_connect")
	addCmd.Flags().String("username", "", "Username for basic auth")
	addCmd.Flags().String("label", "", "Display label")
	addCmd.Flags().String("oidc-host", "", "OIDC issuer host")
	addCmd.Flags().String("oidc-realm", "", "OIDC realm")
	addCmd.Flags().String("oidc-client-id", "", "OIDC client ID")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/servers")
			if err != nil {
				printError(err.Error())
				return nil
			}
			if servers, ok := result["servers"].([]any); ok {
				for _, s := range servers {
					if srv, ok := s.(map[string]any); ok {
						fmt.Printf("%v\t%v\t%v\n", srv["id"], srv["baseUrl"], srv["label"])
					}
				}
				return nil
			}
			printResult(result)
			return nil
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if err := client.delete("/v1/servers/" + args[0]); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Server removed.")
			return nil
		},
	}

	ticketCmd := &cobra.Command{
		Use:   "ticket <id>",
		Short: "Exchange the server's OIDC token for a repository ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.post("/v1/servers/"+args[0]+"/ticket", nil)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	logsCmd := &cobra.Command{
		Use:   "logs <id> [file]",
		Short: "List or fetch repository log files",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/servers/" + args[0] + "/logs"
			if len(args) == 2 {
				path += "/" + args[1]
			}
			client := newClient()
			result, err := client.get(path)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd, rmCmd, ticketCmd, logsCmd)
	return cmd
}

// --- call ---

func callCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <namespace.method> [json-args]",
		Short: "Dispatch a repository API call through the proxy",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverID, _ := cmd.Flags().GetString("server")
			baseURL, _ := cmd.Flags().GetString("base-url")

			body := map[string]any{"method": args[0]}
			if serverID != "" {
				body["serverId"] = serverID
			}
			if baseURL != "" {
				body["baseUrl"] = baseURL
			}
			if len(args) == 2 {
				var parsed any
				if err := json.Unmarshal([]byte(args[1]), &parsed); err != nil {
					return fmt.Errorf("args must be a JSON array or object: %w", err)
				}
				body["args"] = parsed
			}

			client := newClient()
			result, err := client.post("/v1/proxy", body)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().String("server", "", "Registered server ID (uses stored credentials)")
	cmd.Flags().String("base-url", "", "Raw base URL (unauthenticated)")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent console calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			client := newClient()
			result, err := client.get(fmt.Sprintf("/v1/history?limit=%d", limit))
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Number of entries")
	return cmd
}

// --- ai ---

func aiCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "ai", Short: "AI console commands"}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show AI console status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/ai/status")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	routeCmd := &cobra.Command{
		Use:   "route <instruction>",
		Short: "Translate an instruction to a method call without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.post("/v1/ai/router", map[string]any{
				"instruction": strings.Join(args, " "),
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	execCmd := &cobra.Command{
		Use:   "exec <instruction>",
		Short: "Translate an instruction and run it against a server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverID, _ := cmd.Flags().GetString("server")
			client := newClient()
			result, err := client.post("/v1/ai/execute", map[string]any{
				"instruction": strings.Join(args, " "),
				"serverId":    serverID,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	execCmd.Flags().String("server", "", "Registered server ID")

	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Store the AI console API key and model",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, _ := cmd.Flags().GetString("model")
			apiKey := readPassword("API key: ")
			client := newClient()
			_, err := client.put("/v1/ai/settings", map[string]any{
				"apiKey":  apiKey,
				"model":   model,
				"enabled": true,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("AI console configured.")
			return nil
		},
	}
	configureCmd.Flags().String("model", "", "Model name (empty uses the server default)")

	cmd.AddCommand(statusCmd, routeCmd, execCmd, configureCmd)
	return cmd
}
