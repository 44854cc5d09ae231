// Package graph provides the wire types exchanged between the tracelane
// backend and the viewer.
//
// The backend answers every range query with a full snapshot of the requested
// lane window:
//
//	{
//	  "vertices": [{"id": 4, "label": "io.out", "lane": 3, ...}],
//	  "edges":    [{"from": 4, "to": 9}]
//	}
//
// The viewer never trusts this payload blindly. [DecodePartial] parses it
// completely, including structural checks such as duplicate vertex ids and
// unknown dependency classes, before any caller mutates state from it. A
// decode failure is reported as [ErrMalformedPayload] so the caller can keep
// the last good window.
//
// # Core Types
//
//   - [PartialGraph]: one window snapshot
//   - [Node]: a vertex pinned to exactly one lane
//   - [Signal]: one row of a node's incoming/outgoing signal table
//   - [Edge]: a directed dependency
//   - [DependencyClass]: ordinary or long-distance
package graph
