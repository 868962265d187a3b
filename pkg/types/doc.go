// Package types defines the data model, configuration, statistics, and error
// types shared by the accessmigrate pipeline stages: raw source rows, mapped
// target documents, identifier-mapping entries, load statistics, and the
// validation report.
package types
