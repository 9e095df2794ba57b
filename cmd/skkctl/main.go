// skkctl is the command line utility for the skkime dictionaries.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"skkime/internal/config"
)

var (
	configPath = flag.String("config", "", "path to config file")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch cmd {
	case "lookup":
		if len(args) < 1 {
			fatalUsage("skkctl lookup <reading>")
		}
		err = cmdLookup(os.Stdout, loadConfig(), args[0])
	case "register":
		if len(args) < 2 {
			fatalUsage("skkctl register <reading> <word[;annotation]>")
		}
		err = cmdRegister(os.Stdout, loadConfig(), args[0], args[1])
	case "delete":
		if len(args) < 1 {
			fatalUsage("skkctl delete <reading> [word]")
		}
		word := ""
		if len(args) >= 2 {
			word = args[1]
		}
		err = cmdDelete(os.Stdout, loadConfig(), args[0], word)
	case "import":
		if len(args) < 1 {
			fatalUsage("skkctl import <file> [encoding]")
		}
		enc := "auto"
		if len(args) >= 2 {
			enc = args[1]
		}
		err = cmdImport(os.Stdout, loadConfig(), args[0], enc)
	case "export":
		output := ""
		if len(args) >= 1 {
			output = args[0]
		}
		err = cmdExport(os.Stdout, loadConfig(), output)
	case "stats":
		err = cmdStats(os.Stdout, loadConfig())
	case "history":
		limit := 20
		if len(args) >= 1 {
			if limit, err = strconv.Atoi(args[0]); err != nil || limit <= 0 {
				fatalUsage("skkctl history [count]")
			}
		}
		err = cmdHistory(os.Stdout, loadConfig(), limit)
	case "convert":
		if len(args) < 1 {
			fatalUsage("skkctl convert <keys>")
		}
		err = cmdConvert(os.Stdout, loadConfig(), args[0])
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `skkctl - Dictionary utility for skkime

Usage: skkctl [options] <command> [args]

Commands:
  lookup <reading>               Show the merged candidates for a reading
  register <reading> <word>      Add a word to the user dictionary
  delete <reading> [word]        Remove a word, or the whole reading
  import <file> [encoding]       Merge a dictionary file into the user dictionary
  export [output]                Write the user dictionary (.json selects JSON)
  stats                          Show user dictionary statistics
  history [count]                Show recent user dictionary changes
  convert <keys>                 Type keys through the engine and print the result
  help                           Show this help message

Keys for convert are typed literally; <C-j>, <C-g>, <RET>, <BS> and <SPC>
name the special keys.

A running skk-ibus keeps its own copy of the user dictionary; restart it to
pick up changes made here.

Options:
  -config <path>  Path to config file (default: $XDG_CONFIG_HOME/skkime/config.toml)`)
}

func fatalUsage(line string) {
	fmt.Fprintln(os.Stderr, "Usage: "+line)
	os.Exit(1)
}

func loadConfig() *config.Config {
	cfg, err := config.NewLoader(*configPath, nil).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
