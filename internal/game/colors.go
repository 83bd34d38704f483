package game

// PlayerColors 玩家颜色调色板
var PlayerColors = []string{
	"#ef4444", // red
	"#3b82f6", // blue
	"#22c55e", // green
	"#eab308", // yellow
	"#a855f7", // purple
	"#f97316", // orange
	"#ec4899", // pink
	"#14b8a6", // teal
	"#6366f1", // indigo
	"#84cc16", // lime
}

// PickColor 优先使用请求的颜色，被占用时取调色板里第一个空闲颜色
func PickColor(r *Room, requested string) string {
	target := requested
	if target == "" {
		target = PlayerColors[0]
	}

	taken := make(map[string]bool, len(r.Players))
	for _, p := range r.Players {
		taken[p.Color] = true
	}
	if !taken[target] {
		return target
	}

	for _, c := range PlayerColors {
		if !taken[c] {
			return c
		}
	}
	return PlayerColors[0]
}
