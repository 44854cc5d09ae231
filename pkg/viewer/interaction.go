package viewer

import (
	"fmt"

	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/layout"
)

// Tooltip is the hover overlay of one node.
type Tooltip struct {
	Node     graph.NodeID
	Label    string
	Location string
	Code     string
	Incoming []graph.Signal
	Outgoing []graph.Signal
	Screen   layout.Point
}

// Tooltip returns the visible tooltip, or nil.
func (s *Session) Tooltip() *Tooltip { return s.tooltip }

// Hover shows the tooltip of node id. It makes no backend call.
func (s *Session) Hover(id graph.NodeID) (*Tooltip, bool) {
	n, ok := s.nodes[id]
	if !ok {
		s.Leave()
		return nil, false
	}
	s.tooltip = &Tooltip{
		Node:     id,
		Label:    n.Label,
		Location: n.Location(),
		Code:     n.Snippet(),
		Incoming: n.Incoming,
		Outgoing: n.Outgoing,
		Screen:   s.ToScreen(s.bodies[id].Pos),
	}
	s.notify()
	return s.tooltip, true
}

// Leave clears the tooltip when the pointer leaves the canvas.
func (s *Session) Leave() {
	if s.tooltip == nil {
		return
	}
	s.tooltip = nil
	s.notify()
}

// DragStart clears the tooltip as a drag begins.
func (s *Session) DragStart() { s.Leave() }

// DragTo moves a held node. The next frame clamps it into its cell.
func (s *Session) DragTo(id graph.NodeID, canvas layout.Point) bool {
	b, ok := s.bodies[id]
	if !ok {
		return false
	}
	b.Pos = canvas
	b.Vel = layout.Point{}
	return true
}

func (s *Session) dropStaleTooltip() {
	if s.tooltip == nil {
		return
	}
	if _, ok := s.nodes[s.tooltip.Node]; !ok {
		s.tooltip = nil
	}
}

// =============================================================================
// Context menu
// =============================================================================

// Action identifies a context-menu entry.
type Action int

const (
	ActionToggleModule Action = iota
	ActionSetHead
	ActionOpenEditor
	ActionResetHead
)

func (a Action) String() string {
	switch a {
	case ActionToggleModule:
		return "toggle module"
	case ActionSetHead:
		return "make new head"
	case ActionOpenEditor:
		return "show in editor"
	case ActionResetHead:
		return "reset graph"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// MenuItem is one context-menu entry.
type MenuItem struct {
	Action Action
	Label  string
	Node   graph.NodeID
}

// ContextMenu returns the entries for a right click on node, or on the
// background when node is nil or not held.
func (s *Session) ContextMenu(node *graph.NodeID) []MenuItem {
	if node != nil {
		if _, ok := s.nodes[*node]; ok {
			id := *node
			return []MenuItem{
				{Action: ActionToggleModule, Label: ActionToggleModule.String(), Node: id},
				{Action: ActionSetHead, Label: ActionSetHead.String(), Node: id},
				{Action: ActionOpenEditor, Label: ActionOpenEditor.String(), Node: id},
			}
		}
	}
	return []MenuItem{{Action: ActionResetHead, Label: ActionResetHead.String()}}
}

// Invoke runs a context-menu entry. Mutating actions are followed by a forced
// resync of the current window once the backend answers, whether or not the
// command succeeded.
func (s *Session) Invoke(item MenuItem) error {
	switch item.Action {
	case ActionToggleModule:
		return s.ToggleModule(item.Node)
	case ActionSetHead:
		return s.SetNewHead(item.Node)
	case ActionOpenEditor:
		return s.OpenInEditor(item.Node)
	case ActionResetHead:
		s.ResetHead()
		return nil
	}
	return fmt.Errorf("unknown action %v", item.Action)
}

// ToggleModule collapses or expands the module of node id at the node's
// timestamp.
func (s *Session) ToggleModule(id graph.NodeID) error {
	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("node %v is not in the window", id)
	}
	path := append([]string(nil), n.ModulePath...)
	ts := n.Timestamp
	if lane, ok := s.timeline.Lane(n.Lane); ok {
		ts = lane.Timestamp(s.timeline.Count())
	}
	s.mutate("toggle module", func() error { return s.be.ToggleModule(s.ctx, path, ts) })
	return nil
}

// SetNewHead restricts the graph to what node id depends on.
func (s *Session) SetNewHead(id graph.NodeID) error {
	if _, ok := s.nodes[id]; !ok {
		return fmt.Errorf("node %v is not in the window", id)
	}
	s.mutate("set head", func() error { return s.be.SetNewHead(s.ctx, id) })
	return nil
}

// ResetHead restores the full graph.
func (s *Session) ResetHead() {
	s.mutate("reset head", func() error { return s.be.ResetHead(s.ctx) })
}

// OpenInEditor asks the backend to show node id in the editor. Nothing in
// the view changes and failures are only logged.
func (s *Session) OpenInEditor(id graph.NodeID) error {
	if _, ok := s.nodes[id]; !ok {
		return fmt.Errorf("node %v is not in the window", id)
	}
	ctx, be, logger := s.ctx, s.be, s.logger
	s.loop.Go(func() {
		if err := be.OpenInEditor(ctx, id); err != nil {
			logger.Warn("open in editor failed", "node", id, "err", err)
		}
	})
	return nil
}

// mutate runs call off the loop and then forces a resync of the current
// window. No local change precedes the call, so a failure needs no rollback.
func (s *Session) mutate(name string, call func() error) {
	s.logger.Debug("backend command", "cmd", name)
	s.loop.Go(func() {
		err := call()
		s.loop.Post(func() {
			if err != nil {
				s.logger.Error("backend command failed", "cmd", name, "err", err)
			}
			s.Sync(s.CurrentLanes(), true)
		})
	})
}
