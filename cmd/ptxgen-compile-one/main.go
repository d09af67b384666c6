// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Command ptxgen-compile-one is a smoke-test/demo binary (spec §A.3): it
// runs the bundled vector_add fixture program through Backend.CompileMethod
// and Backend.FinalizeModule and prints the resulting PTX text. Generalizes
// falcon's 20-line bare os.Args main.go into a cobra root command with
// flags for the Target descriptor.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ember-lang/ptxgen/internal/ir/fixture"
	"github.com/ember-lang/ptxgen/ptx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		archMajor    int
		archMinor    int
		fastMath     bool
		debugInfo    bool
		inlineSource bool
		targetFile   string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "ptxgen-compile-one",
		Short: "Compile the bundled vector_add fixture to PTX text",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ptx.Target{
				ArchMajor:   archMajor,
				ArchMinor:   archMinor,
				ISAVersion:  "6.4",
				PointerBits: 64,
				Flags: ptx.Flags{
					FastMath:      fastMath,
					EmitDebugInfo: debugInfo,
					InlineSource:  inlineSource,
				},
			}
			if targetFile != "" {
				f, err := os.Open(targetFile)
				if err != nil {
					return fmt.Errorf("opening target file: %w", err)
				}
				defer f.Close()
				loaded, err := ptx.LoadTarget(f)
				if err != nil {
					return err
				}
				target = loaded
			}

			log := logrus.New()
			if !verbose {
				log.SetLevel(logrus.WarnLevel)
			}

			backend, err := ptx.NewBackend(target, logrus.NewEntry(log))
			if err != nil {
				return err
			}

			method, ep := fixture.VectorAdd()
			compiled, err := backend.CompileMethod(ep, method, fixture.Alignment{})
			if err != nil {
				return err
			}

			text := backend.FinalizeModule([]ptx.CompiledMethod{compiled}, compiled.Sink)
			fmt.Print(text)
			return nil
		},
	}

	cmd.Flags().IntVar(&archMajor, "arch-major", 7, "target shader-model major version")
	cmd.Flags().IntVar(&archMinor, "arch-minor", 5, "target shader-model minor version")
	cmd.Flags().BoolVar(&fastMath, "fast-math", false, "enable fast-math opcode relaxations")
	cmd.Flags().BoolVar(&debugInfo, "debug-info", false, "emit .loc debug directives")
	cmd.Flags().BoolVar(&inlineSource, "inline-source", false, "inline source lines as comments alongside .loc directives")
	cmd.Flags().StringVar(&targetFile, "target-file", "", "YAML file overriding all other target flags")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")

	return cmd
}
