package game

import "sort"

const defaultMaxPlayers = 6

// Catalog 已注册的游戏模块
type Catalog struct {
	modules map[string]Module
}

// NewCatalog 注册一组模块，ID 重复时后者覆盖前者
func NewCatalog(mods ...Module) *Catalog {
	c := &Catalog{modules: make(map[string]Module, len(mods))}
	for _, m := range mods {
		c.modules[m.Info().ID] = m
	}
	return c
}

// Get 按游戏类型取模块
func (c *Catalog) Get(gameType string) (Module, bool) {
	m, ok := c.modules[gameType]
	return m, ok
}

// Name 游戏显示名
func (c *Catalog) Name(gameType string) string {
	if m, ok := c.modules[gameType]; ok {
		return m.Info().Name
	}
	return "未知"
}

// MaxPlayers 房间人数上限
func (c *Catalog) MaxPlayers(gameType string) int {
	if m, ok := c.modules[gameType]; ok && m.Info().MaxPlayers > 0 {
		return m.Info().MaxPlayers
	}
	return defaultMaxPlayers
}

// IDs 已注册的游戏类型（有序）
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.modules))
	for id := range c.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
