// Command rvkernel loads an RV64IMC ELF executable into a fresh
// process and runs it against the in-tree emulator core, standing in
// for the interactive shell's "run a path as an executable" surface
// (spec.md §6, out of core scope but needed here so the core has an
// entry point).
package main

import (
	"bufio"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"rv64kernel/internal/kernlog"
	"rv64kernel/internal/process"
	"rv64kernel/internal/riscv"
	"rv64kernel/internal/syscall"
	"rv64kernel/internal/vfs"
)

var (
	flagDebug    bool
	flagTraceExec bool
)

func main() {
	root := &cobra.Command{
		Use:   "rvkernel",
		Short: "loads and runs an RV64IMC guest executable",
	}
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable verbose kernel logging")
	root.AddCommand(newRunCmd(), newDebugCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <elf-path> [args...]",
		Short: "load an ELF image and tick the CPU to completion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuest(args, false)
		},
	}
	cmd.Flags().BoolVar(&flagTraceExec, "trace-exec", false, "log every tick's program counter")
	return cmd
}

func newDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug <elf-path> [args...]",
		Short: "single-step the guest with a breakpoint REPL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuest(args, true)
		},
	}
	return cmd
}

func runGuest(args []string, debugMode bool) error {
	log, err := kernlog.New(flagDebug)
	if err != nil {
		return err
	}
	defer log.Sync()

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading guest image: %w", err)
	}

	root := vfs.NewMemFS()
	sysRoot := &syscall.Root{Folder: root}

	var proc *process.Process
	proc, err = process.Load(process.LoadInput{
		Image: image,
		Argv:  args,
		Cwd:   "/",
		Env:   map[string]string{},
	}, nil)
	if err != nil {
		log.Errorw("failed to load guest image", "path", args[0], "error", err)
		return err
	}
	tbl := &syscall.Table{Root: sysRoot, Proc: proc}
	cpu := proc.CPU
	cpu.SetSyscallFunc(tbl.Dispatch)

	log.Infow("loaded guest process", "id", proc.ID, "entry", cpu.PC())

	if debugMode {
		return runDebugREPL(cpu, log)
	}

	// Disable GC during the tick loop: a tight fetch/decode/execute
	// loop with no large allocations of its own should not pay for
	// stop-the-world pauses the guest program cannot cause.
	old := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(old)

	for cpu.State() == riscv.StateRunning {
		if flagTraceExec {
			log.Debugw("tick", "pc", cpu.PC())
		}
		cpu.Tick()
	}

	if err := cpu.HaltErr(); err != nil {
		log.Errorw("guest halted on fault", "error", err, "pc", cpu.PC())
		return err
	}
	code, _ := proc.ExitCode()
	log.Infow("guest exited", "code", code)
	return nil
}

// runDebugREPL is a single-step loop with breakpoints, carried forward
// in spirit from the teacher's ExecProgramDebugMode/RunProgramDebugMode
// (vm/exec.go, vm/run.go): "n"/"next" steps one tick, "r"/"run"
// continues to completion, "b <addr>" sets a breakpoint, blank repeats
// the last command.
func runDebugREPL(cpu *riscv.CPU, log interface{ Infow(string, ...interface{}) }) error {
	breakpoints := map[uint64]bool{}
	scanner := bufio.NewScanner(os.Stdin)
	lastCmd := ""

	for cpu.State() == riscv.StateRunning {
		fmt.Printf("pc=%#x> ", cpu.PC())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			line = lastCmd
		}
		lastCmd = line

		switch {
		case line == "n" || line == "next":
			cpu.Tick()
		case line == "r" || line == "run":
			for cpu.State() == riscv.StateRunning {
				if breakpoints[cpu.PC()] {
					break
				}
				cpu.Tick()
			}
		case len(line) > 2 && line[:2] == "b ":
			var addr uint64
			fmt.Sscanf(line[2:], "%x", &addr)
			breakpoints[addr] = true
		case line == "exit" || line == "quit":
			return nil
		}
	}
	log.Infow("debug session ended", "pc", cpu.PC())
	return nil
}
