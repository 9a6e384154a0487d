// Package cmd implements the syllabus command line.
//
// The root command loads configuration from .syllabus.yml (or --config),
// SYLLABUS_ environment variables and flags, in increasing precedence, and
// hands a typed config.Config to each subcommand:
//
//	serve    serve courses with accounts and live reload
//	build    render the static site
//	list     list courses
//	check    validate the content layout
//	auth     run an account action from the terminal
//	version  print build information
package cmd
