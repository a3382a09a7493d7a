// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// rootFlags are inherited by every subcommand.
func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output JSON instead of tables",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

func roadmapFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "roadmap",
		Aliases:  []string{"r"},
		Usage:    "Roadmap ID, ID prefix, or name",
		Required: true,
	}
}

// setupCommand handles setup operations for the config file and the backend database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the backend database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "status",
						Usage: "List migrations and whether they are applied, without migrating",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// serveCommand runs the backend API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the StudyFlow backend API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// roadmapCommand handles roadmap operations
func roadmapCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "roadmap",
		Usage: "Manage learning roadmaps",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List roadmaps from the local cache",
				Action:  r.RoadmapList,
			},
			{
				Name:      "show",
				Usage:     "Show a roadmap and its videos",
				Arguments: []cli.Argument{&cli.StringArg{Name: "roadmap"}},
				Action:    r.RoadmapShow,
			},
			{
				Name:      "create",
				Usage:     "Create an empty roadmap",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Roadmap description",
					},
				},
				Action: r.RoadmapCreate,
			},
			{
				Name:  "rename",
				Usage: "Change a roadmap's name or description",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "roadmap"},
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "New description",
					},
				},
				Action: r.RoadmapRename,
			},
			{
				Name:      "delete",
				Usage:     "Delete a roadmap",
				Arguments: []cli.Argument{&cli.StringArg{Name: "roadmap"}},
				Action:    r.RoadmapDelete,
			},
			{
				Name:   "sync",
				Usage:  "Fetch roadmaps from the backend and replace the local cache",
				Action: r.RoadmapSync,
			},
			{
				Name:      "export",
				Usage:     "Export a roadmap as Markdown, CSV or JSON",
				Arguments: []cli.Argument{&cli.StringArg{Name: "roadmap"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: markdown, csv or json",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
						Value:   ".",
					},
				},
				Action: r.RoadmapExport,
			},
		},
	}
}

// videoCommand handles operations on the videos of one roadmap
func videoCommand(r *Runner) *cli.Command {
	videoArg := func() []cli.Argument { return []cli.Argument{&cli.StringArg{Name: "video"}} }

	return &cli.Command{
		Name:    "video",
		Aliases: []string{"vid"},
		Usage:   "Manage the videos of a roadmap",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add videos by YouTube URL or id",
				ArgsUsage: "<url>...",
				Flags:     []cli.Flag{roadmapFlag()},
				Action:    r.VideoAdd,
			},
			{
				Name:      "import-playlist",
				Usage:     "Add every video of a YouTube playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "url"}},
				Flags:     []cli.Flag{roadmapFlag()},
				Action:    r.VideoImportPlaylist,
			},
			{
				Name:      "remove",
				Usage:     "Remove a video",
				Arguments: videoArg(),
				Flags:     []cli.Flag{roadmapFlag()},
				Action:    r.VideoRemove,
			},
			{
				Name:  "move",
				Usage: "Move a video to a 1-based position",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "video"},
					&cli.StringArg{Name: "position"},
				},
				Flags:  []cli.Flag{roadmapFlag()},
				Action: r.VideoMove,
			},
			{
				Name:  "progress",
				Usage: "Set watch progress (0-100)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "video"},
					&cli.StringArg{Name: "percent"},
				},
				Flags:  []cli.Flag{roadmapFlag()},
				Action: r.VideoProgress,
			},
			{
				Name:      "complete",
				Usage:     "Mark a video as watched",
				Arguments: videoArg(),
				Flags:     []cli.Flag{roadmapFlag()},
				Action:    r.VideoComplete,
			},
			{
				Name:      "uncomplete",
				Usage:     "Mark a video as not watched",
				Arguments: videoArg(),
				Flags:     []cli.Flag{roadmapFlag()},
				Action:    r.VideoUncomplete,
			},
			{
				Name:      "notes",
				Usage:     "Print, replace or export a video's Markdown notes",
				Arguments: videoArg(),
				Flags: []cli.Flag{
					roadmapFlag(),
					&cli.StringFlag{
						Name:  "set",
						Usage: "Replace the notes with this text",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Replace the notes with the contents of a file",
					},
					&cli.StringFlag{
						Name:  "append",
						Usage: "Append a line to the notes",
					},
					&cli.StringFlag{
						Name:  "export",
						Usage: "Write the notes to studyflow-notes-<id>.md in this directory",
					},
				},
				Action: r.VideoNotes,
			},
			{
				Name:      "timestamp",
				Aliases:   []string{"ts"},
				Usage:     "List, add or remove timestamp markers",
				Arguments: videoArg(),
				Flags: []cli.Flag{
					roadmapFlag(),
					&cli.StringFlag{
						Name:  "at",
						Usage: "Add a marker at this position (m:ss, h:mm:ss or seconds)",
					},
					&cli.StringFlag{
						Name:  "note",
						Usage: "Text of the new marker",
					},
					&cli.IntFlag{
						Name:  "remove",
						Usage: "Remove the marker at this 1-based index",
					},
				},
				Action: r.VideoTimestamp,
			},
			{
				Name:      "position",
				Usage:     "Print or save the resume position",
				Arguments: videoArg(),
				Flags: []cli.Flag{
					roadmapFlag(),
					&cli.StringFlag{
						Name:  "set",
						Usage: "Save this playback position (m:ss, h:mm:ss or seconds)",
					},
					&cli.StringFlag{
						Name:  "duration",
						Usage: "Video length; with --set, also updates progress from the position",
					},
				},
				Action: r.VideoPosition,
			},
		},
	}
}

// taskCommand handles planner tasks
func taskCommand(r *Runner) *cli.Command {
	taskArg := func() []cli.Argument { return []cli.Argument{&cli.StringArg{Name: "task"}} }

	return &cli.Command{
		Name:  "task",
		Usage: "Manage planner tasks",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show tasks with this status (todo, doing, done)",
					},
				},
				Action: r.TaskList,
			},
			{
				Name:      "add",
				Usage:     "Add a task",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "priority",
						Aliases: []string{"p"},
						Usage:   "low, medium or high",
						Value:   "medium",
					},
					&cli.StringFlag{
						Name:  "due",
						Usage: "Due date (YYYY-MM-DD)",
					},
					&cli.StringSliceFlag{
						Name:    "tag",
						Aliases: []string{"t"},
						Usage:   "Tag, repeatable",
					},
				},
				Action: r.TaskAdd,
			},
			{
				Name:  "status",
				Usage: "Set a task's status",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task"},
					&cli.StringArg{Name: "status"},
				},
				Action: r.TaskStatus,
			},
			{
				Name:      "cycle",
				Usage:     "Advance a task todo → doing → done → todo",
				Arguments: taskArg(),
				Action:    r.TaskCycle,
			},
			{
				Name:      "delete",
				Usage:     "Delete a task",
				Arguments: taskArg(),
				Action:    r.TaskDelete,
			},
			{
				Name:   "sync",
				Usage:  "Fetch tasks from the backend and replace the local cache",
				Action: r.TaskSync,
			},
		},
	}
}

// habitCommand handles the local habit tracker
func habitCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "habit",
		Usage: "Track daily habits (local only)",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List habits with their current streak",
				Action:  r.HabitList,
			},
			{
				Name:      "toggle",
				Usage:     "Toggle a habit for a day",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "date",
						Usage: "Day to toggle (YYYY-MM-DD), defaults to today",
					},
				},
				Action: r.HabitToggle,
			},
		},
	}
}

// queueCommand handles the local "need to watch" queue
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Manage the watch queue (local only)",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List queued videos, newest first",
				Action:  r.QueueList,
			},
			{
				Name:      "add",
				Usage:     "Queue a YouTube video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "url"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "title",
						Usage: "Title to show instead of looking it up",
					},
				},
				Action: r.QueueAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove a queued video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.QueueRemove,
			},
		},
	}
}

// libraryCommand handles the local Study Library
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "library",
		Usage: "Manage study notes and documents (local only)",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List library entries, newest first",
				Action:  r.LibraryList,
			},
			{
				Name:      "add",
				Usage:     "Add a note, or import a document with --file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "content",
						Aliases: []string{"m"},
						Usage:   "Note body",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Import the contents of a file",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Entry type: note, pdf or markdown (guessed from --file)",
					},
				},
				Action: r.LibraryAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a library entry",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.LibraryRemove,
			},
			{
				Name:      "search",
				Usage:     "Find entries whose title or content contains a query",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Action:    r.LibrarySearch,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in to the StudyFlow backend",
		Commands: []*cli.Command{
			{
				Name:   "github",
				Usage:  "Sign in with GitHub in the browser",
				Action: r.AuthGitHub,
			},
			{
				Name:      "email",
				Usage:     "Request a sign-in link by email",
				Arguments: []cli.Argument{&cli.StringArg{Name: "email"}},
				Action:    r.AuthEmail,
			},
			{
				Name:  "verify",
				Usage: "Complete an email sign-in with the token from the link",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
					&cli.StringArg{Name: "token"},
				},
				Action: r.AuthVerify,
			},
			{
				Name:   "status",
				Usage:  "Show the saved session and backend health",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the saved session",
				Action: r.AuthLogout,
			},
		},
	}
}

// tuiCommand launches the roadmap browser
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse roadmaps interactively",
		Action: r.TUI,
	}
}
