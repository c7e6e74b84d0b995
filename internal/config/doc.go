// Package config defines the format-agnostic configuration model for the
// application, along with the core interfaces (Loader, Writer) for reading
// and writing it from various sources.
//
// Two documents are modeled: the control Battery applied to a light, and a
// Scene snapshot used to seed and export the in-memory document. Concrete
// implementations of the interfaces, such as for HCL, are provided in
// separate packages.
package config
