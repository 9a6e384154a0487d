// Package internal contains the implementation packages of the syllabus
// command.
//
// # Package Organization
//
//   - content: course and lesson resolution from the content root
//   - renderer: MDX lesson bodies to HTML
//   - views: templ page components
//   - auth: account actions, sessions and identity providers
//   - server: HTTP routes, cookie sessions and the live update socket
//   - build: static site generation
//   - watcher: content change detection with debouncing
//   - config, logging, errors, validation, version: shared infrastructure
//
// # Request Flow
//
// A page request passes through the server middleware chain, resolves the
// browser session against the auth service, asks the content resolver for
// the course or lesson, renders the lesson body and hands the result to a
// views component. The static build runs the same resolver, renderer and
// views without the server.
package internal
