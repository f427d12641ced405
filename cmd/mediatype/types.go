//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/effect"
	"github.com/fogfish/mediatype/internal/manager"
	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "manage media types",
}

var typesExportCmd = &cobra.Command{
	Use:   "export [NAME...]",
	Short: "export media types as JSON",
	RunE:  runTypesExport,
}

var typesImportCmd = &cobra.Command{
	Use:   "import [FILE]",
	Short: "import media types from JSON file (default is stdin)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTypesImport,
}

var typesDropCmd = &cobra.Command{
	Use:   "drop NAME...",
	Short: "drop media types",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTypesDrop,
}

var typesEnsureEffectCmd = &cobra.Command{
	Use:   "ensure-effect EFFECT (PATTERN* | NAME...)",
	Short: "ensure the effect is part of media types",
	Long: `Ensure the effect with given parameters is part of the media types,
selected either by the name pattern (e.g. team_*) or by the list of names.

Examples:
  mediatype types ensure-effect srcset_helper 'team_*' -p srcset='400 480w, 800 960w'
  mediatype types ensure-effect filter_sharpen hero thumb --position prepend`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTypesEnsureEffect,
}

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "list effects available for media types",
	Args:  cobra.NoArgs,
	RunE:  runEffectsList,
}

var effectsDescribeCmd = &cobra.Command{
	Use:   "describe EFFECT",
	Short: "describe parameters of the effect",
	Args:  cobra.ExactArgs(1),
	RunE:  runEffectsDescribe,
}

func init() {
	rootCmd.AddCommand(typesCmd, effectsCmd)
	typesCmd.AddCommand(typesExportCmd, typesImportCmd, typesDropCmd, typesEnsureEffectCmd)
	effectsCmd.AddCommand(effectsDescribeCmd)

	typesExportCmd.Flags().Bool("system", false, "include system types")
	typesExportCmd.Flags().Bool("pretty", true, "indent JSON")

	typesEnsureEffectCmd.Flags().StringToStringP("param", "p", nil, "effect parameter key=value")
	typesEnsureEffectCmd.Flags().String("position", string(manager.Append), "position of new effect: append or prepend")
}

func runTypesExport(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	system, _ := cmd.Flags().GetBool("system")
	pretty, _ := cmd.Flags().GetBool("pretty")

	return rt.manager.Export(cmd.Context(), cmd.OutOrStdout(),
		manager.ExportOptions{Names: args, IncludeSystem: system, Pretty: pretty},
	)
}

func runTypesImport(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		fd, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer fd.Close()
		r = fd
	}

	if err := rt.manager.Import(cmd.Context(), r); err != nil {
		return err
	}

	slog.Info("media types imported")
	return nil
}

func runTypesDrop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	for _, name := range args {
		t, err := rt.manager.Get(ctx, name)
		if err != nil {
			return err
		}

		if !t.Exists() {
			slog.Warn("media type does not exist", slog.String("type", name))
			continue
		}

		if err := t.Drop(ctx); err != nil {
			return err
		}
		slog.Info("media type dropped", slog.String("type", name))
	}

	return nil
}

func runTypesEnsureEffect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	kv, _ := cmd.Flags().GetStringToString("param")
	params := make(mediatype.Params, len(kv))
	for k, v := range kv {
		params[k] = v
	}

	position, _ := cmd.Flags().GetString("position")

	name, selector := args[0], manager.Select(args[1:]...)
	if err := rt.manager.EnsureEffectToTypes(ctx, selector, name, params, manager.Position(position)); err != nil {
		return err
	}

	slog.Info("effect ensured",
		slog.String("effect", name),
		slog.String("types", strings.Join(args[1:], " ")),
	)
	return nil
}

func runEffectsList(cmd *cobra.Command, args []string) error {
	reg := effect.Default()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EFFECT\tPARAMS")
	for _, name := range reg.Available() {
		info, err := reg.Describe(name)
		if err != nil {
			return err
		}

		seq := make([]string, len(info.Params))
		for i, p := range info.Params {
			seq[i] = p.Name
		}
		fmt.Fprintf(w, "%s\t%s\n", info.Name, strings.Join(seq, ", "))
	}

	return w.Flush()
}

func runEffectsDescribe(cmd *cobra.Command, args []string) error {
	info, err := effect.Default().Describe(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "    ")
	return enc.Encode(info)
}
