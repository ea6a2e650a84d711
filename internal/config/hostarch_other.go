//go:build !unix

package config

func hostMachine() string { return "" }
