// Package installsys implements the dependency installer behind hdlsetup. Install plans are
// ordered lists of shell steps executed through mvdan.cc/sh; additional plans can be declared
// in Starlark (implemented by go.starlark.net) plan files.
package installsys
