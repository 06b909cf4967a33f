package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Read and write stored documents",
}

var docGetCmd = &cobra.Command{
	Use:   "get <namespace> <key>",
	Short: "Print a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, ok, err := eng.LoadDocument(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s/%s not found", args[0], args[1])
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(doc))
		return nil
	},
}

var docPutCmd = &cobra.Command{
	Use:   "put <namespace> <key> [json|-]",
	Short: "Replace a document (reads stdin when json is - or omitted)",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var body []byte
		if len(args) == 3 && args[2] != "-" {
			body = []byte(args[2])
		} else {
			var err error
			if body, err = io.ReadAll(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		if err := eng.SaveDocument(cmd.Context(), args[0], args[1], body); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s/%s\n", args[0], args[1])
		return nil
	},
}

var docListCmd = &cobra.Command{
	Use:     "ls <namespace>",
	Aliases: []string{"list"},
	Short:   "List document keys",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := eng.ListKeys(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(keys, "\n"))
		}
		return nil
	},
}

var docRemoveCmd = &cobra.Command{
	Use:   "rm <namespace> <key>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := eng.DeleteDocument(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", args[0], args[1])
		return nil
	},
}

func init() {
	docCmd.AddCommand(docGetCmd)
	docCmd.AddCommand(docPutCmd)
	docCmd.AddCommand(docListCmd)
	docCmd.AddCommand(docRemoveCmd)
}
