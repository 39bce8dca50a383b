package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/glua-lang/glua/compiler"
	"github.com/glua-lang/glua/feedback"
	"github.com/glua-lang/glua/parser"
	"github.com/glua-lang/glua/source"
	"github.com/glua-lang/glua/vm"
)

var errorNoColor bool
var debugShowAST bool
var debugShowBytecode bool
var debugShowAll bool
var gcPause float64
var gcStepMul float64

func readSourceFiles(args []string) (files []*source.File) {
	var filenames []string

	for _, arg := range args {
		// Try to convert every argument to an absolute path; if that isn't
		// possible, or the extension is wrong, skip it rather than aborting
		// the whole batch.
		if abs, err := filepath.Abs(arg); err == nil {
			if path.Ext(abs) == ".lua" {
				filenames = append(filenames, abs)
			} else {
				fmt.Printf("could not use '%s' with extension '%s'\n", abs, path.Ext(abs))
			}
		} else {
			fmt.Printf("could not find '%s'\n", arg)
		}
	}

	for _, filename := range filenames {
		buf, err := ioutil.ReadFile(filename)
		if err != nil {
			fmt.Println(err.Error())
			continue
		}
		files = append(files, source.NewFile(filename, string(buf)))
	}

	return files
}

// digestFile runs a file through lex+parse (+compile+run, when shouldRun is
// set), printing any requested debug output along the way. It returns the
// rendered diagnostic strings for the caller to print under the file's
// header.
func digestFile(file *source.File, shouldRun bool) []string {
	block, err := parser.Parse(file)
	if err != nil {
		if pe, ok := err.(*parser.ParseError); ok {
			return []string{pe.Feedback(file).Make(!errorNoColor)}
		}
		return []string{err.Error()}
	}

	if debugShowAll || debugShowAST {
		fmt.Println("#######################")
		fmt.Println("##        AST        ##")
		fmt.Println("#######################")
		fmt.Println()
		fmt.Printf("%+v\n", block)
		fmt.Println()
	}

	if !shouldRun {
		return nil
	}

	proto, err := compiler.Compile(block, file.Filename, compiler.DefaultOptions())
	if err != nil {
		if ce, ok := err.(*compiler.CompilerError); ok {
			return []string{(&feedback.Error{
				Classification: feedback.CompilerError,
				File:           file,
				What: feedback.Selection{
					Description: ce.Message,
					Span:        source.Span{Start: source.Pos{Line: ce.Line, Col: 1}, End: source.Pos{Line: ce.Line, Col: 1}},
				},
			}).Make(!errorNoColor)}
		}
		return []string{err.Error()}
	}

	if debugShowAll || debugShowBytecode {
		fmt.Println("#######################")
		fmt.Println("##    Disassembly    ##")
		fmt.Println("#######################")
		fmt.Println()
		vm.Disassemble(proto)
		fmt.Println()
	}

	state := vm.NewState()
	if gcPause > 0 {
		state.GC.SetGCPause(gcPause)
	}
	if gcStepMul > 0 {
		state.GC.SetGCStepMultiplier(gcStepMul)
	}

	closure := state.Load(proto)
	_, runErr := state.Call(vm.ClosureValue(closure), nil)
	if runErr != nil {
		rerr := runErr.(*vm.RuntimeError)
		return []string{fmt.Sprintf("runtime error: %s", rerr.Error())}
	}
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "glua"
	app.Usage = "a Lua 5.1.5-compatible interpreter core"

	noColorFlag := cli.BoolFlag{
		Name:        "no-color",
		Usage:       "hide colors in error and warning messages",
		Destination: &errorNoColor,
	}
	debugAstFlag := cli.BoolFlag{
		Name:        "debug-ast",
		Usage:       "show a basic representation of the abstract-syntax-tree",
		Destination: &debugShowAST,
	}
	debugBytecodeFlag := cli.BoolFlag{
		Name:        "debug-bytecode",
		Usage:       "show the disassembled bytecode emitted by the compiler",
		Destination: &debugShowBytecode,
	}
	debugAllFlag := cli.BoolFlag{
		Name:        "debug",
		Usage:       "alias for --debug-ast --debug-bytecode",
		Destination: &debugShowAll,
	}
	gcPauseFlag := cli.Float64Flag{
		Name:        "gc-pause",
		Usage:       "GC pause multiplier applied to live bytes (default 2.0)",
		Destination: &gcPause,
	}
	gcStepMulFlag := cli.Float64Flag{
		Name:        "gc-step-mul",
		Usage:       "GC incremental step multiplier (default 2.0)",
		Destination: &gcStepMul,
	}

	app.Commands = []cli.Command{
		{
			Name:    "run",
			Aliases: []string{"r"},
			Usage:   "Interpret file(s) and output any results",
			Flags:   []cli.Flag{noColorFlag, debugBytecodeFlag, debugAstFlag, debugAllFlag, gcPauseFlag, gcStepMulFlag},
			Action: func(c *cli.Context) error {
				for _, f := range readSourceFiles(c.Args()) {
					if msgs := digestFile(f, true); len(msgs) > 0 {
						fmt.Printf("# %s\n", f.Filename)
						for _, m := range msgs {
							fmt.Println(m)
						}
					}
				}
				return nil
			},
		},
		{
			Name:    "check",
			Aliases: []string{"c"},
			Usage:   "Check syntax of file(s) without executing",
			Flags:   []cli.Flag{noColorFlag, debugAstFlag},
			Action: func(c *cli.Context) error {
				for _, f := range readSourceFiles(c.Args()) {
					if msgs := digestFile(f, false); len(msgs) > 0 {
						fmt.Printf("# %s\n", f.Filename)
						for _, m := range msgs {
							fmt.Println(m)
						}
					}
				}
				return nil
			},
		},
		{
			Name:  "dis",
			Usage: "Compile file(s) and print disassembled bytecode without executing",
			Flags: []cli.Flag{noColorFlag},
			Action: func(c *cli.Context) error {
				debugShowBytecode = true
				for _, f := range readSourceFiles(c.Args()) {
					block, err := parser.Parse(f)
					if err != nil {
						fmt.Println(err.Error())
						continue
					}
					proto, err := compiler.Compile(block, f.Filename, compiler.DefaultOptions())
					if err != nil {
						fmt.Println(err.Error())
						continue
					}
					vm.Disassemble(proto)
				}
				return nil
			},
		},
	}

	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}

	app.Run(os.Args)
}
