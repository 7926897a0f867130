package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"

	"github.com/lambdavm/lam/loader"
	"github.com/lambdavm/lam/machine"
)

var (
	programFile = flag.String("program", "", "Path to the program file to execute")
	traceFile   = flag.String("trace", "", "File to receive one trace record per executed instruction")
	interactive = flag.Bool("interactive", false, "Enter an instruction REPL after loading the program")
	iterLimit   = flag.Int("iter-limit", 0, "Maximum number of instructions to execute (0 = unlimited)")
	registers   = flag.Int("registers", 32, "Register count for the REPL machine when no program is given")
)

func main() {
	flag.Parse()
	if *programFile == "" && !*interactive {
		log.Fatal("no program provided; use -program or -interactive")
	}

	var m *machine.Machine
	if *programFile != "" {
		var err error
		m, err = loader.Load(*programFile)
		if err != nil {
			fatal(err)
		}
	} else {
		m = machine.New(nil, *registers)
	}
	m.IterLimit = *iterLimit

	if *traceFile != "" {
		f, err := os.Create(*traceFile)
		if err != nil {
			fatal(err)
		}
		defer f.Close()
		m.Tracer = machine.NewTracer(f)
	}

	if *programFile != "" {
		if err := m.Run(); err != nil {
			if _, ok := err.(*machine.NoChoicePointError); ok {
				fmt.Fprintln(os.Stderr, "no")
				os.Exit(1)
			}
			fatal(err)
		}
	}
	if *interactive {
		repl(m)
	}
}

// repl reads instruction lines, appends them to the machine's code and runs
// until the program counter catches up again. Failed lines leave the
// machine as the failure left it.
func repl(m *machine.Machine) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT)
	go func() {
		<-interrupt
		fmt.Fprintln(os.Stderr)
		os.Exit(0)
	}()

	rl, err := readline.New("lam> ")
	if err != nil {
		fatal(err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		instr, err := loader.ParseInstruction(line)
		if err != nil {
			warn(err)
			continue
		}
		m.Code = append(m.Code, instr)
		if err := m.Run(); err != nil {
			warn(err)
			// Skip the instructions the failed run left behind.
			m.PC = len(m.Code)
		}
	}
}

func colorize(msg string) string {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return "\x1b[31m" + msg + "\x1b[0m"
	}
	return msg
}

func warn(err error) {
	fmt.Fprintln(os.Stderr, colorize(err.Error()))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, colorize(err.Error()))
	os.Exit(1)
}
