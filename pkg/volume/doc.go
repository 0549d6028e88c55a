// Package volume enumerates candidate external volumes and classifies them.
//
// A Volume is discovered by the Catalog, tagged with a closed FilesystemKind by the
// Classifier, and flagged IsSystem when it prefix-matches an identifier that hosts
// Apple-managed partitions on internal boot media. The system check is deliberately
// coarse: a false positive skips a volume, it never touches a boot volume.
package volume
