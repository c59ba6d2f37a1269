// Package debugconsole implements the interactive single-step console:
// step, run-to-breakpoint, register and stack inspection, modeled on the
// teacher's RunProgramDebugMode and on rcornwell-S370/command/reader's use
// of github.com/peterh/liner for line history and completion.
package debugconsole

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"compita/vm"
)

var commands = []string{"step", "s", "run", "r", "break", "regs", "stack", "quit", "program"}

// Run drives engine interactively until the user quits or the engine
// halts or fails. It writes prompts and command output to the terminal
// liner manages; engine WRITE output goes to whatever stream the engine
// was constructed with, unaffected by this console.
func Run(engine *vm.Engine, log *slog.Logger) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		var matches []string
		for _, c := range commands {
			if strings.HasPrefix(c, partial) {
				matches = append(matches, c)
			}
		}
		sort.Strings(matches)
		return matches
	})

	breakpoints := map[int]bool{}

	for {
		prompt, err := line.Prompt("compita> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			log.Error("error reading command: " + err.Error())
			return err
		}
		line.AppendHistory(prompt)

		fields := strings.Fields(prompt)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "step", "s":
			if engine.Halted() {
				fmt.Println("program already halted")
				continue
			}
			if err := engine.Step(); err != nil {
				printStopReason(err)
			}
		case "run", "r":
			for !engine.Halted() {
				if breakpoints[engine.EIP()] {
					fmt.Printf("breakpoint hit at EIP %d\n", engine.EIP())
					break
				}
				if err := engine.Step(); err != nil {
					printStopReason(err)
					break
				}
			}
		case "break":
			if len(fields) != 2 {
				fmt.Println("usage: break <EIP>")
				continue
			}
			eip, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("not a number:", fields[1])
				continue
			}
			if breakpoints[eip] {
				delete(breakpoints, eip)
				fmt.Printf("breakpoint cleared at %d\n", eip)
			} else {
				breakpoints[eip] = true
				fmt.Printf("breakpoint set at %d\n", eip)
			}
		case "regs":
			printRegisters(engine)
		case "stack":
			printStack(engine)
		case "program":
			printProgram(engine)
		case "quit", "exit":
			return nil
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func printStopReason(err error) {
	var rerr *vm.RuntimeError
	if errors.As(err, &rerr) && errors.Is(rerr.Reason, vm.ErrProgramFinished) {
		fmt.Println("program finished")
		return
	}
	fmt.Println("stopped:", err)
}

var namedRegisters = []struct {
	Name  string
	Index int
}{
	{"EIP", vm.RegEIP}, {"ESP", vm.RegESP}, {"EBP", vm.RegEBP}, {"EHM", vm.RegEHM},
	{"ERV", vm.RegERV}, {"R0", vm.RegR0}, {"R1", vm.RegR1}, {"R2", vm.RegR2},
}

func printRegisters(engine *vm.Engine) {
	for _, r := range namedRegisters {
		w := engine.Register(r.Index)
		fmt.Printf("%-4s %-6s %d\n", r.Name, w.Kind(), int32(w.Bits()))
	}
}

func printStack(engine *vm.Engine) {
	sp := int(int32(engine.Register(vm.RegESP).Bits()))
	top := int(int32(engine.Register(vm.RegEHM).Bits()))
	for addr := sp; addr <= top; addr++ {
		w := engine.RAMWord(addr)
		fmt.Printf("RAM[%d] %-6s %d\n", addr, w.Kind(), int32(w.Bits()))
	}
}

func printProgram(engine *vm.Engine) {
	for i := 0; i < engine.ProgramLength(); i++ {
		instr, ok := engine.InstructionAt(i)
		if !ok {
			continue
		}
		marker := "  "
		if i == engine.EIP() {
			marker = "->"
		}
		fmt.Printf("%s %4d  %s\n", marker, instr.Line, instr.String())
	}
}
