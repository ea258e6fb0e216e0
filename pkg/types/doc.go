// Package types defines the entity types, snapshot row types and standard
// errors shared by the stu storage, catalog, backup and API layers.
package types
