package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/pipeline"
	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/runner"
	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/server"
)

var (
	outDir     string
	runAfter   bool
	verbose    bool
	dumpTokens bool
	dumpTree   bool
	dumpTable  bool
	errorFiles bool
	servePort  int
)

var rootCmd = &cobra.Command{
	Use:   "armcc <source-file>",
	Short: "Compile C-like source to ARMv8 assembly",
	Long: `armcc compiles a C-like source file to ARMv8 assembly.

A successful run writes the assembly to armv8_output.s and the intermediate
quadruple listing to output.txt. A failed run writes the error report to
armv8_output.s instead.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		opts := pipeline.Options{
			Dir:         outDir,
			Tokens:      dumpTokens,
			Tree:        dumpTree,
			SymbolTable: dumpTable,
			ErrorFiles:  errorFiles,
		}
		if verbose {
			opts.Log = cmd.OutOrStdout()
		}

		res, err := pipeline.Compile(string(src), opts)
		if err != nil {
			return err
		}
		if !res.Clean {
			if !verbose {
				// The progress log already carried the report.
				fmt.Fprintln(cmd.OutOrStdout(), res.Report)
			}
			return fmt.Errorf("compilation failed")
		}
		if verbose {
			fmt.Fprint(cmd.OutOrStdout(), res.Listing)
		}

		if runAfter {
			out, err := runner.Run(context.Background(), runner.Options{
				Dir:     outDir,
				Verbose: verbose,
			})
			fmt.Fprint(cmd.OutOrStdout(), out)
			if err != nil {
				return err
			}
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the compiler over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "listening on :%d\n", servePort)
		return server.ListenAndServe(servePort)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outDir, "out", "o", "", "directory for output artifacts")
	rootCmd.Flags().BoolVarP(&runAfter, "run", "r", false, "execute the compiled program with the quad tester")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print phase progress, the three-address listing and unfiltered program output")
	rootCmd.Flags().BoolVarP(&dumpTokens, "tokens", "t", false, "write the token dump to tokens.txt")
	rootCmd.Flags().BoolVar(&dumpTree, "abstract-syntax-tree", false, "write the derivation tree to parse_tree.txt")
	rootCmd.Flags().BoolVar(&dumpTable, "symbol-table", false, "write the symbol table to symbol_table.txt")
	rootCmd.Flags().BoolVar(&errorFiles, "error-files", false, "write per-category error files")

	serveCmd.Flags().IntVar(&servePort, "port", server.DefaultPort, "HTTP listen port")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
