// Package ports defines the interfaces that connect the card-table core
// to infrastructure adapters.
//
// The core (internal/stability, internal/table) depends only on these
// interfaces. Adapters (internal/adapters) provide concrete
// implementations: the sampling reader, the JSON card-map repository,
// the HTTP API.
//
//   - [Reader]: samples a position for up to two overlapping tags
//   - [Target]: the minimal physical driver contract beneath a Reader
//   - [LabelResolver] / [LabelStore]: UID to card-label mapping
//   - [MapRepository]: persistence for the UID to label map
//   - [Logger]: structured logging abstraction
package ports
