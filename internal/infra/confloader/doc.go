// Package confloader locates and loads autoserve config files.
//
// Without an explicit path the loader walks from the working directory up
// to the filesystem root and uses the first of SearchPlaces it finds. JSON
// and YAML are supported; a package.json contributes its "autoserve" key.
//
// Load validates the located document against the schema registry,
// formats any validation errors into a reason, and normalizes the document
// to destination names whether or not it is valid.
//
// The package also provides the AUTOSERVE_SERVER_* environment overlay, a
// koanf map provider for layered merges, and a Watcher that reloads a
// config file when it changes, used by "config check --watch".
package confloader
