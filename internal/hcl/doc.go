// Package hcl is the HCL implementation of config.Loader and config.Writer.
// It reads battery and scene files into the format-agnostic config model and
// writes scenes back out with hclwrite.
package hcl
