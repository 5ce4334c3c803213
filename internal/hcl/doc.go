// Package hcl implements the config.Loader interface for pipeline
// definitions written in HCL, the primary configuration format.
package hcl
