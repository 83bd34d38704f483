package pictomania

import (
	"maps"
	"slices"
)

// WordsPerCard 每张词卡上的词数，对应数字 1~7
const WordsPerCard = 7

// WordSource 词卡来源
type WordSource interface {
	// Levels 可用的难度
	Levels() []int
	// Cards 某个难度下的全部词卡
	Cards(level int) [][]string
}

// MemoryWords 内存词库
type MemoryWords struct {
	byLevel map[int][][]string
}

// NewMemoryWords 用给定的词卡创建词库，词数不足 WordsPerCard 的卡会被丢弃
func NewMemoryWords(byLevel map[int][][]string) *MemoryWords {
	m := &MemoryWords{byLevel: make(map[int][][]string, len(byLevel))}
	for level, cards := range byLevel {
		for _, c := range cards {
			if len(c) >= WordsPerCard {
				m.byLevel[level] = append(m.byLevel[level], slices.Clone(c[:WordsPerCard]))
			}
		}
	}
	return m
}

func (m *MemoryWords) Levels() []int {
	return slices.Sorted(maps.Keys(m.byLevel))
}

func (m *MemoryWords) Cards(level int) [][]string {
	return m.byLevel[level]
}

// DefaultWords 内置词库
func DefaultWords() *MemoryWords {
	return NewMemoryWords(map[int][][]string{
		1: {
			{"苹果", "香蕉", "西瓜", "葡萄", "草莓", "菠萝", "樱桃"},
			{"猫", "狗", "兔子", "大象", "长颈鹿", "企鹅", "熊猫"},
			{"汽车", "飞机", "轮船", "火车", "自行车", "直升机", "火箭"},
			{"太阳", "月亮", "星星", "彩虹", "云朵", "闪电", "雪花"},
			{"房子", "城堡", "帐篷", "灯塔", "桥", "风车", "金字塔"},
			{"帽子", "眼镜", "雨伞", "手表", "鞋子", "领带", "手套"},
			{"吉他", "钢琴", "鼓", "小号", "小提琴", "口琴", "麦克风"},
			{"足球", "篮球", "网球", "保龄球", "滑板", "风筝", "溜溜球"},
		},
		2: {
			{"医生", "厨师", "警察", "消防员", "宇航员", "魔术师", "海盗"},
			{"生日派对", "婚礼", "野餐", "露营", "钓鱼", "滑雪", "冲浪"},
			{"恐龙", "独角兽", "美人鱼", "机器人", "外星人", "吸血鬼", "僵尸"},
			{"打喷嚏", "打哈欠", "做梦", "迷路", "排队", "自拍", "摔跤"},
			{"火山", "瀑布", "沙漠", "冰山", "岛屿", "洞穴", "森林"},
			{"望远镜", "显微镜", "指南针", "沙漏", "放大镜", "地球仪", "温度计"},
		},
	})
}
