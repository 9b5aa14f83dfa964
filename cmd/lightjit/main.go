package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/lightjit/lightjit"
)

const (
	exitCodeUsage = 1
	// exitCodeFailure is when the module fails to translate or execute.
	exitCodeFailure = 2
)

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	subCmd := flag.Arg(0)
	switch subCmd {
	case "run":
		doRun(flag.Args()[1:], stdOut, stdErr, exit)
	case "describe":
		doDescribe(flag.Args()[1:], stdOut, stdErr, exit)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(exitCodeUsage)
	}
}

func doRun(args []string, stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var funcIndex functionIndex
	flags.Var(&funcIndex, "func", "index of the function to execute")

	configPath := configFlag(flags)

	if err := flags.Parse(args); err != nil {
		exit(exitCodeUsage)
	}

	if help {
		printRunUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to wasm file")
		printRunUsage(stdErr, flags)
		exit(exitCodeUsage)
	}
	if flags.NArg() != 3 {
		fmt.Fprintln(stdErr, "expected exactly two arguments")
		printRunUsage(stdErr, flags)
		exit(exitCodeUsage)
	}

	var params [2]uint64
	for i, arg := range flags.Args()[1:] {
		v, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			fmt.Fprintf(stdErr, "invalid argument %q: %v\n", arg, err)
			exit(exitCodeUsage)
		}
		params[i] = v
	}

	m, logger := translate(flags.Arg(0), *configPath, stdErr, exit)
	defer m.Close()

	result, err := m.Execute(uint32(funcIndex), params[0], params[1])
	if err != nil {
		logger.Debug("execution failed", zap.Uint32("function", uint32(funcIndex)), zap.Error(err))
		fmt.Fprintf(stdErr, "error executing function[%d]: %v\n", funcIndex, err)
		exit(exitCodeFailure)
	}
	fmt.Fprintln(stdOut, result)
	exit(0)
}

// functionIndex is a flag.Value accepting only indexes that fit the 32-bit function index space.
type functionIndex uint32

func (i *functionIndex) String() string {
	return strconv.FormatUint(uint64(*i), 10)
}

func (i *functionIndex) Set(s string) error {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return err
	}
	*i = functionIndex(v)
	return nil
}

func doDescribe(args []string, stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("describe", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	configPath := configFlag(flags)

	if err := flags.Parse(args); err != nil {
		exit(exitCodeUsage)
	}

	if help {
		printDescribeUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(stdErr, "missing path to wasm file")
		printDescribeUsage(stdErr, flags)
		exit(exitCodeUsage)
	}

	m, _ := translate(flags.Arg(0), *configPath, stdErr, exit)
	defer m.Close()

	for i := 0; i < m.NumFunctions(); i++ {
		ft, _ := m.FunctionType(uint32(i))
		fmt.Fprintf(stdOut, "function[%d]: %s\n", i, ft)
	}
	exit(0)
}

func configFlag(flags *flag.FlagSet) *string {
	return flags.String("config", "", "path to a TOML file configuring the log level and format")
}

// translate reads the wasm file at path and translates it, or exits.
func translate(path, configPath string, stdErr io.Writer, exit func(code int)) (*lightjit.TranslatedModule, *zap.Logger) {
	c, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "error reading config: %v\n", err)
		exit(exitCodeUsage)
	}
	logger, err := c.newLogger(stdErr)
	if err != nil {
		fmt.Fprintf(stdErr, "invalid config: %v\n", err)
		exit(exitCodeUsage)
	}

	wasm, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdErr, "error reading wasm binary: %v\n", err)
		exit(exitCodeUsage)
	}

	m, err := lightjit.TranslateWithConfig(wasm, lightjit.NewRuntimeConfig().WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stdErr, "error translating wasm binary: %v\n", err)
		if errors.Is(err, lightjit.ErrUnsupportedFeature) || errors.Is(err, lightjit.ErrUnsupportedOpcode) {
			fmt.Fprintln(stdErr, "only local.get, i32.add, i32.eq, block, if, else, end, br, br_if and unreachable are supported")
		}
		exit(exitCodeFailure)
	}
	return m, logger
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "lightjit CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  lightjit <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  run\t\tExecutes a function of a WebAssembly binary with two arguments")
	fmt.Fprintln(stdErr, "  describe\tPrints the signature of each function of a WebAssembly binary")
}

func printRunUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "lightjit CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  lightjit run <options> <path to wasm file> <arg0> <arg1>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

func printDescribeUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "lightjit CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  lightjit describe <options> <path to wasm file>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}
