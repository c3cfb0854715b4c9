// Package cliargs projects configuration schemas onto command-line
// arguments.
//
// Every property of the server group becomes a "--kebab-name" flag, and
// every property of a mounted extension schema becomes
// "--<kind>-<name>-<property>". Projected arguments carry the config path
// they write to, so values collected with SetValues can be layered over a
// loaded config file.
package cliargs
