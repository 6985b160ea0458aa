// Package paths provides the managed storage layout shared across the backend.
//
// All components address extension installs, partition data, and persisted
// state through these helpers so the registry, the permission store, and the
// browsing-context host agree on one directory structure.
package paths
