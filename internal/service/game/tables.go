package game

// 每个任务需要的出征人数，按玩家总数（5~10）查表
var missionSizes = map[int][5]int{
	5:  {2, 3, 2, 3, 3},
	6:  {2, 3, 4, 3, 4},
	7:  {2, 3, 3, 4, 4},
	8:  {3, 4, 4, 5, 5},
	9:  {3, 4, 4, 5, 5},
	10: {3, 4, 4, 5, 5},
}

// 每个玩家总数对应的坏人数量
var evilCounts = map[int]int{
	5: 2, 6: 2, 7: 3, 8: 3, 9: 3, 10: 4,
}

// MissionSize 返回指定轮次需要的出征人数；玩家数或轮次非法时返回 0
func MissionSize(playerCount, mission int) int {
	sizes, ok := missionSizes[playerCount]
	if !ok || mission < 1 || mission > len(sizes) {
		return 0
	}

	return sizes[mission-1]
}

// FailsRequired 返回任务失败所需的失败牌数量
// 只有 7 人及以上的第 4 轮任务需要两张失败牌，其他情况均为一张
func FailsRequired(playerCount, mission int) int {
	if mission == 4 && playerCount >= 7 {
		return 2
	}

	return 1
}

// buildRoleDeck 按固定顺序构建指定人数的角色牌堆：
// 梅林和刺客必定在场，派西维尔和莫甘娜只在 7 人及以上出现，
// 剩余坏人名额由莫德雷德爪牙补齐，最后用忠臣填满
func buildRoleDeck(playerCount int) []string {
	deck := make([]string, 0, playerCount)

	deck = append(deck, ROLE_MERLIN, ROLE_ASSASSIN)

	if playerCount >= 7 {
		deck = append(deck, ROLE_MORGANA, ROLE_PERCIVAL)
	}

	evil := 1 // 已有刺客
	if playerCount >= 7 {
		evil = 2 // 刺客 + 莫甘娜
	}

	for evil < evilCounts[playerCount] {
		deck = append(deck, ROLE_MINION)
		evil++
	}

	for len(deck) < playerCount {
		deck = append(deck, ROLE_SERVANT)
	}

	return deck
}
