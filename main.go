// Copyright 2025 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cloudwego/promptchain/chain"
	"github.com/cloudwego/promptchain/handler"
	"github.com/cloudwego/promptchain/llm/log"
	"github.com/cloudwego/promptchain/mcp"
	"github.com/cloudwego/promptchain/scaffold"
	"github.com/cloudwego/promptchain/version"
)

const Usage = `promptchain <Action> [Name] [Flags]
Action:
   invoke       invoke the named chain with -input JSON and print the result
   new          scaffold a new chain definition with its prompt and snippet files
   mcp          serve the chain registry over MCP stdio
   version      print the version of promptchain
Name:
   the chain name, i.e. chains/<Name>.yaml under the project root
`

func main() {
	flags := flag.NewFlagSet("promptchain", flag.ExitOnError)

	flagHelp := flags.Bool("h", false, "Show help message.")
	flagVerbose := flags.Bool("verbose", false, "Verbose mode.")
	flagRoot := flags.String("root", ".", "Project root containing chains/, prompts/ and snippets/.")
	flagInput := flags.String("input", "", "JSON object with the chain inputs, e.g. '{\"text\":\"...\"}'.")
	flagForce := flags.Bool("force", false, "Overwrite an existing chain definition when scaffolding.")
	flagEditor := flags.String("editor", "", "Editor command for scaffolding (default: $EDITOR, then 'code').")
	flagWatch := flags.Bool("watch", false, "Invalidate compiled chains when their definition files change (mcp only).")

	flags.Usage = func() {
		fmt.Fprint(os.Stderr, Usage)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(1)
	}
	action := os.Args[1]
	args := os.Args[2:]
	var name string
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		name = args[0]
		args = args[1:]
	}
	_ = flags.Parse(args)
	if *flagHelp {
		flags.Usage()
		os.Exit(0)
	}
	if *flagVerbose {
		log.SetLogLevel(log.DebugLevel)
	}

	switch action {
	case "invoke":
		runInvoke(*flagRoot, name, *flagInput)
	case "new":
		runNew(*flagRoot, name, *flagForce, *flagEditor)
	case "mcp":
		runMCP(*flagRoot, *flagWatch)
	case "version":
		fmt.Println(version.Version)
	default:
		flags.Usage()
		os.Exit(1)
	}
}

func runInvoke(root, name, input string) {
	if name == "" {
		fmt.Fprintln(os.Stderr, "invoke: chain name is required")
		os.Exit(1)
	}
	inputs := map[string]string{}
	if input != "" {
		if err := json.Unmarshal([]byte(input), &inputs); err != nil {
			fmt.Fprintf(os.Stderr, "invoke: invalid -input JSON: %v\n", err)
			os.Exit(1)
		}
	}

	reg := chain.NewRegistry(chain.RegistryOptions{Root: root})
	resp := handler.New(reg).Handle(context.Background(), handler.Request{
		ChainName: name,
		Inputs:    inputs,
	})

	var pretty map[string]string
	if err := json.Unmarshal([]byte(resp.Body), &pretty); err == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Println(resp.Body)
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func runNew(root, name string, force bool, editor string) {
	if name == "" {
		fmt.Fprintln(os.Stderr, "new: chain name is required")
		os.Exit(1)
	}
	w := &scaffold.Wizard{
		Root:   root,
		Editor: editor,
		Force:  force,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
	if err := w.Run(name); err != nil {
		fmt.Fprintf(os.Stderr, "new: %v\n", err)
		os.Exit(1)
	}
}

func runMCP(root string, watch bool) {
	reg := chain.NewRegistry(chain.RegistryOptions{Root: root})
	if watch {
		go func() {
			if err := reg.Watch(context.Background()); err != nil && err != context.Canceled {
				log.Error("definition watcher stopped: %v", err)
			}
		}()
	}
	svr := mcp.NewServer(mcp.ServerOptions{
		ServerName:    "promptchain",
		ServerVersion: version.Version,
		Registry:      reg,
	})
	if err := svr.ServeStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
		os.Exit(1)
	}
}
