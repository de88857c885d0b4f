// Command lama loads a compiled Lama bytefile, verifies it, and runs it.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"lama/internal/bytefile"
	"lama/internal/diag"
	"lama/internal/disasm"
	"lama/internal/heap"
	"lama/internal/interp"
	"lama/internal/verify"
	"lama/internal/verrors"
)

const defaultStackCapacity = 1 << 20

func main() {
	log := diag.Default().Module("cmd")

	app := &cli.App{
		Name:  "lama",
		Usage: "load and run a compiled Lama bytefile",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "load",
				Aliases:  []string{"l"},
				Usage:    "path to the compiled .bc bytefile",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "dump-bytefile",
				Usage: "disassemble the verified code section and exit",
			},
			&cli.BoolFlag{
				Name:    "freq",
				Aliases: []string{"f"},
				Usage:   "print an opcode-frequency table over reachable code and exit",
			},
			&cli.BoolFlag{
				Name:  "dump-cfg",
				Usage: "print the verifier's stack depth at every reachable code offset and exit",
			},
			&cli.IntFlag{
				Name:  "stack-size",
				Usage: "operand stack capacity in words",
				Value: defaultStackCapacity,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		kind := ""
		if verrErr, ok := err.(*verrors.Error); ok {
			kind = string(verrErr.Kind)
		}
		log.Error("run failed", "kind", kind, "error", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if verrErr, ok := err.(*verrors.Error); ok {
		switch verrErr.Kind {
		case verrors.KindLoad, verrors.KindVerify, verrors.KindDecode:
			return 2
		case verrors.KindUser:
			return 1
		default:
			return 3
		}
	}
	return 1
}

func run(c *cli.Context) error {
	log := diag.Default().Module("cmd")
	path := c.String("load")

	data, err := os.ReadFile(path)
	if err != nil {
		return verrors.MalformedBytefile(fmt.Sprintf("cannot read %s: %v", path, err))
	}

	bf, err := bytefile.Decode(path, data)
	if err != nil {
		return err
	}
	log.Info("loaded bytefile", "path", path, "globals", bf.GlobalsCount, "symbols", len(bf.PublicSymbols))

	verified, err := verify.Verify(bf)
	if err != nil {
		return err
	}
	log.Debug("verification passed", "code_bytes", len(verified.Code))

	if c.Bool("dump-bytefile") {
		out, err := disasm.Dump(bf, verified)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	if c.Bool("freq") {
		counts, err := disasm.Frequency(verified)
		if err != nil {
			return err
		}
		fmt.Print(disasm.FrequencyTable(counts))
		return nil
	}

	if c.Bool("dump-cfg") {
		printCFG(bf, verified)
		return nil
	}

	rt := heap.NewRuntime()
	m, err := interp.New(bf, verified, rt, c.Int("stack-size"))
	if err != nil {
		return err
	}

	runErr := m.Run()
	if flushErr := rt.Flush(); flushErr != nil && runErr == nil {
		return flushErr
	}
	return runErr
}

func printCFG(bf *bytefile.Bytefile, verified *verify.Result) {
	for offset, depth := range verified.Depths {
		if depth < 0 {
			continue
		}
		fmt.Printf("%d: depth=%d\n", offset, depth)
	}
}
