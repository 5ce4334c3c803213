// Package config defines the unified, format-agnostic model of a pipeline
// definition, plus the Loader interface implemented by each supported
// configuration format (HCL, YAML workflow).
package config
