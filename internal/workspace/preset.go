package workspace

// LayoutPreset identifies a named arrangement used when opening several
// sessions into one tab at once.
type LayoutPreset string

const (
	PresetEvenHorizontal LayoutPreset = "even-horizontal"
	PresetEvenVertical   LayoutPreset = "even-vertical"
	PresetMainVertical   LayoutPreset = "main-vertical"
	PresetMainHorizontal LayoutPreset = "main-horizontal"
	PresetTiled          LayoutPreset = "tiled"
)

// BuildPresetLayout creates a layout tree with one fresh pane per session,
// arranged according to preset. Sessions keep their given order in a
// pre-order traversal of the result. Returns nil for an empty session list.
func BuildPresetLayout(preset LayoutPreset, sessions []Session) Node {
	if len(sessions) == 0 {
		return nil
	}
	panes := make([]Node, 0, len(sessions))
	for _, session := range sessions {
		panes = append(panes, NewPaneLayout(session))
	}
	if len(panes) == 1 {
		return panes[0]
	}
	switch preset {
	case PresetEvenVertical:
		return buildEvenSplit(panes, SplitVertical)
	case PresetMainVertical:
		return buildMainSplit(panes, SplitHorizontal, SplitVertical)
	case PresetMainHorizontal:
		return buildMainSplit(panes, SplitVertical, SplitHorizontal)
	case PresetTiled:
		return buildTiledLayout(panes)
	default:
		return buildEvenSplit(panes, SplitHorizontal)
	}
}

// buildEvenSplit builds a balanced binary tree with proportional ratios.
func buildEvenSplit(nodes []Node, dir SplitDirection) Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	mid := len(nodes) / 2
	return &Split{
		Direction: dir,
		Ratio:     float64(mid) / float64(len(nodes)),
		Children: [2]Node{
			buildEvenSplit(nodes[:mid], dir),
			buildEvenSplit(nodes[mid:], dir),
		},
	}
}

// buildMainSplit puts the first pane in a 60% main area and splits the rest
// evenly along the secondary axis.
func buildMainSplit(nodes []Node, mainDir, subDir SplitDirection) Node {
	if len(nodes) <= 2 {
		return buildEvenSplit(nodes, mainDir)
	}
	return &Split{
		Direction: mainDir,
		Ratio:     0.6,
		Children: [2]Node{
			nodes[0],
			buildEvenSplit(nodes[1:], subDir),
		},
	}
}

// buildTiledLayout arranges panes in a rough grid: rows of 2 (3 when more
// than 4 panes), rows stacked vertically.
func buildTiledLayout(nodes []Node) Node {
	n := len(nodes)
	if n <= 2 {
		return buildEvenSplit(nodes, SplitHorizontal)
	}
	cols := 2
	if n > 4 {
		cols = 3
	}
	rows := (n + cols - 1) / cols
	rowNodes := make([]Node, 0, rows)
	for r := 0; r < rows; r++ {
		start := r * cols
		end := min(start+cols, n)
		rowNodes = append(rowNodes, buildEvenSplit(nodes[start:end], SplitHorizontal))
	}
	return buildEvenSplit(rowNodes, SplitVertical)
}
