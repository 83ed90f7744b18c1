package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cageclock/internal/ipc"
	"cageclock/internal/keystore"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:     "keys",
		Aliases: []string{"key"},
		Short:   "Manage YouTube Data API keys",
	}

	var name string
	var fromStdin bool
	var skipVerify bool
	addCmd := &cobra.Command{
		Use:   "add [api-key]",
		Short: "Store an API key and make it active",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := secretArg(cmd.InOrStdin(), args, fromStdin)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if !skipVerify {
					result, err := ipc.Call[ipc.VerifyResult](client, ipc.VerifyAPIKey{APIKey: secret})
					if err != nil {
						return err
					}
					if !result.Valid {
						return fmt.Errorf("key rejected: %s", result.Error)
					}
				}
				resp, err := ipc.Call[ipc.AddedKey](client, ipc.AddAPIKey{APIKey: secret, Name: name})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Added %s (%s) as the active key\n", resp.Key.Name, resp.Key.Masked)
				return nil
			})
		},
	}
	addCmd.Flags().StringVarP(&name, "name", "n", "", "Display name for the key")
	addCmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the key from standard input")
	addCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "Store the key without probing the API")
	keysCmd.AddCommand(addCmd)

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := ipc.Call[ipc.KeyList](client, ipc.ListAPIKeys{})
				if err != nil {
					return err
				}
				if listJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Keys) == 0 {
					presence, err := ipc.Call[ipc.APIKeyPresence](client, ipc.GetAPIKey{})
					if err == nil && presence.HasAPIKey {
						fmt.Fprintln(out, "No stored keys; using the legacy or configured key")
						return nil
					}
					fmt.Fprintln(out, "No API keys configured (run `cageclock keys add`)")
					return nil
				}
				fmt.Fprint(out, renderTable([]string{"Active", "ID", "Name", "Key", "Status"}, keyRows(resp.Keys), nil))
				return nil
			})
		},
	}
	addJSONFlag(listCmd, &listJSON)
	keysCmd.AddCommand(listCmd)

	keysCmd.AddCommand(&cobra.Command{
		Use:   "use <id>",
		Short: "Make a stored key the active key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := ipc.Call[ipc.Empty](client, ipc.SetActiveAPIKey{ID: args[0]}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active key set to %s\n", args[0])
				return nil
			})
		},
	})

	keysCmd.AddCommand(&cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a stored key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := ipc.Call[ipc.Empty](client, ipc.DeleteAPIKey{ID: args[0]}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted key %s\n", args[0])
				return nil
			})
		},
	})

	keysCmd.AddCommand(&cobra.Command{
		Use:   "verify <id>",
		Short: "Probe a stored key against the API and record the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := ipc.Call[ipc.VerifyResult](client, ipc.ReverifyAPIKey{ID: args[0]})
				if err != nil {
					return err
				}
				if resp.Valid {
					fmt.Fprintf(cmd.OutOrStdout(), "Key %s is valid\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Key %s is invalid: %s\n", args[0], resp.Error)
				return nil
			})
		},
	})

	var legacyStdin bool
	legacyCmd := &cobra.Command{
		Use:   "set-legacy [api-key]",
		Short: "Store the single legacy key used when no keys are stored",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := secretArg(cmd.InOrStdin(), args, legacyStdin)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := ipc.Call[ipc.Empty](client, ipc.SetAPIKey{APIKey: secret}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Legacy key saved")
				return nil
			})
		},
	}
	legacyCmd.Flags().BoolVar(&legacyStdin, "stdin", false, "Read the key from standard input")
	keysCmd.AddCommand(legacyCmd)

	return keysCmd
}

func keyRows(keys []ipc.KeyView) [][]string {
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		marker := ""
		if k.Active {
			marker = "*"
		}
		status := k.Status
		if status == "" {
			status = keystore.FormatTimeAgo(k.LastVerified, time.Now())
		}
		rows = append(rows, []string{marker, k.ID, k.Name, k.Masked, status})
	}
	return rows
}

func secretArg(stdin io.Reader, args []string, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read key: %w", err)
		}
		secret := strings.TrimSpace(line)
		if secret == "" {
			return "", errors.New("no key on standard input")
		}
		return secret, nil
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", errors.New("api key is required (pass it as an argument or use --stdin)")
	}
	return strings.TrimSpace(args[0]), nil
}
