// Command apimap is a CLI front end over the ApiMap core: it loads a
// workspace, optionally attaches a YardMap documentation archive and a
// LiveMap MCP channel, and answers one-shot code-intelligence queries or
// watches the workspace for changes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/apimap/internal/apimap"
	"github.com/standardbeagle/apimap/internal/config"
	"github.com/standardbeagle/apimap/internal/diagnostics"
	"github.com/standardbeagle/apimap/internal/livemap"
	"github.com/standardbeagle/apimap/internal/pin"
	"github.com/standardbeagle/apimap/internal/version"
	"github.com/standardbeagle/apimap/internal/yardmap"
)

func main() {
	app := &cli.App{
		Name:                   "apimap",
		Usage:                  "symbol resolution and type inference over a workspace",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "workspace root directory",
				Value:   ".",
			},
			&cli.StringSliceFlag{
				Name:  "archive",
				Usage: "YardMap archive file to load (repeatable)",
			},
			&cli.StringFlag{
				Name:  "live-mcp-cmd",
				Usage: "command to launch an MCP server for LiveMap (runtime introspection); if empty, LiveMap is disabled",
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "directory to write diagnostic logs into; if empty, diagnostics are discarded",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "emit JSON instead of plain text",
			},
		},
		Before: func(c *cli.Context) error {
			if dir := c.String("log-dir"); dir != "" {
				path, err := diagnostics.OpenLogFile(dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "diagnostics: %s\n", path)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			return diagnostics.Close()
		},
		Commands: []*cli.Command{
			methodsCommand(),
			constantsCommand(),
			inferCommand(),
			pathsCommand(),
			searchCommand(),
			documentCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// buildApiMap loads the Config, an optional YardMap archive set, and an
// optional LiveMap MCP channel, then returns an initialized ApiMap.
func buildApiMap(c *cli.Context) (*apimap.ApiMap, error) {
	root, err := filepath.Abs(c.String("root"))
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", c.String("root"), err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if archives := c.StringSlice("archive"); len(archives) > 0 {
		cfg.ArchivePaths = append(cfg.ArchivePaths, archives...)
	}

	yard, errs := yardmap.Load(cfg.ArchivePaths)
	for _, e := range errs {
		diagnostics.UnknownLibrary("archive", e)
	}

	live, err := dialLiveMap(c.String("live-mcp-cmd"))
	if err != nil {
		diagnostics.Event("livemap", "dial failed: %v", err)
		live = livemap.Null{}
	}

	am := apimap.New(cfg, yard, live)
	if err := am.Initialize(); err != nil {
		return nil, err
	}
	return am, nil
}

// dialLiveMap launches an external MCP server over stdio and returns a
// LiveMap backed by the resulting client session. An empty cmdline disables
// LiveMap entirely, per spec.md §2's "opportunistic" row.
func dialLiveMap(cmdline string) (livemap.LiveMap, error) {
	if cmdline == "" {
		return livemap.Null{}, nil
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "apimap", Version: version.Version}, nil)
	transport := &mcp.CommandTransport{Command: exec.Command("sh", "-c", cmdline)}
	session, err := client.Connect(context.Background(), transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect live map: %w", err)
	}
	return &livemap.MCP{Session: session}, nil
}

func output(c *cli.Context, v any, lines func() []string) error {
	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	for _, l := range lines() {
		fmt.Println(l)
	}
	return nil
}

func methodsCommand() *cli.Command {
	return &cli.Command{
		Name:      "methods",
		Usage:     "list methods visible on a namespace",
		ArgsUsage: "<fqns>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "class", Usage: "list class (singleton) methods instead of instance methods"},
			&cli.BoolFlag{Name: "private", Usage: "include private and protected methods"},
		},
		Action: func(c *cli.Context) error {
			am, err := buildApiMap(c)
			if err != nil {
				return err
			}
			fqns := c.Args().First()
			visibility := pin.Public
			if c.Bool("private") {
				visibility = pin.Private
			}
			var pins []pin.Pin
			if c.Bool("class") {
				pins = am.GetMethods(fqns, fqns, visibility)
			} else {
				pins = am.GetInstanceMethods(fqns, fqns, visibility)
			}
			return output(c, pins, func() []string {
				var lines []string
				for _, p := range pins {
					lines = append(lines, p.Path()+" -> "+p.ReturnType)
				}
				return lines
			})
		},
	}
}

func constantsCommand() *cli.Command {
	return &cli.Command{
		Name:      "constants",
		Usage:     "list constants visible on a namespace",
		ArgsUsage: "<fqns>",
		Action: func(c *cli.Context) error {
			am, err := buildApiMap(c)
			if err != nil {
				return err
			}
			fqns := c.Args().First()
			pins := am.GetConstants(fqns, fqns)
			return output(c, pins, func() []string {
				var lines []string
				for _, p := range pins {
					lines = append(lines, p.Path())
				}
				return lines
			})
		},
	}
}

func inferCommand() *cli.Command {
	return &cli.Command{
		Name:      "infer",
		Usage:     "infer the type of a dotted signature chain",
		ArgsUsage: "<signature>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "namespace", Usage: "enclosing namespace the signature is evaluated in"},
			&cli.BoolFlag{Name: "class", Usage: "evaluate at class scope instead of instance scope"},
		},
		Action: func(c *cli.Context) error {
			am, err := buildApiMap(c)
			if err != nil {
				return err
			}
			scope := pin.ScopeInstance
			if c.Bool("class") {
				scope = pin.ScopeClass
			}
			t := am.InferSignatureType(c.Args().First(), c.String("namespace"), scope)
			return output(c, map[string]string{"type": t}, func() []string { return []string{t} })
		},
	}
}

func pathsCommand() *cli.Command {
	return &cli.Command{
		Name:      "paths",
		Usage:     "resolve a path suggestion (A#m, A.m, or A::B)",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			am, err := buildApiMap(c)
			if err != nil {
				return err
			}
			pins := am.GetPathSuggestions(c.Args().First())
			return output(c, pins, func() []string {
				var lines []string
				for _, p := range pins {
					lines = append(lines, p.Path())
				}
				return lines
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "substring-search known code-object paths",
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			am, err := buildApiMap(c)
			if err != nil {
				return err
			}
			pins := am.Search(c.Args().First())
			return output(c, pins, func() []string {
				var lines []string
				for _, p := range pins {
					lines = append(lines, p.Path())
				}
				return lines
			})
		},
	}
}

func documentCommand() *cli.Command {
	return &cli.Command{
		Name:      "document",
		Usage:     "fetch the documented object(s) at a path",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			am, err := buildApiMap(c)
			if err != nil {
				return err
			}
			docs := am.Document(c.Args().First())
			return output(c, docs, func() []string {
				var lines []string
				for _, d := range docs {
					lines = append(lines, fmt.Sprintf("%s: %s", d.Path, d.Docstring))
				}
				return lines
			})
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "watch the workspace and re-index on change",
		Action: func(c *cli.Context) error {
			am, err := buildApiMap(c)
			if err != nil {
				return err
			}
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()

			// Watch the absolute root so event names match the absolute
			// workspace paths Update compares against.
			root, err := filepath.Abs(c.String("root"))
			if err != nil {
				return fmt.Errorf("resolve root %q: %w", c.String("root"), err)
			}
			if err := filepath.WalkDir(root, addWatchDirs(watcher)); err != nil {
				return fmt.Errorf("walk root for watcher: %w", err)
			}

			fmt.Fprintf(os.Stderr, "watching %s\n", root)
			for {
				select {
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
						continue
					}
					if err := am.Update(ev.Name); err != nil {
						diagnostics.Event("watch", "update %s: %v", ev.Name, err)
						continue
					}
					fmt.Fprintf(os.Stderr, "reindexed %s\n", ev.Name)
				case werr, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					diagnostics.Event("watch", "watcher error: %v", werr)
				}
			}
		},
	}
}

func addWatchDirs(watcher *fsnotify.Watcher) func(path string, d os.DirEntry, err error) error {
	return func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = watcher.Add(path)
		}
		return nil
	}
}
