package game

import (
	"math/rand"

	"github.com/google/uuid"
)

func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// ShortID 截取 UUID 的末 8 位，作为对玩家友好的短标识
func ShortID() string {
	id := GenID()

	return id[len(id)-8:]
}

// RandomPerm 是生产环境使用的洗牌排列
func RandomPerm(n int) []int {
	return rand.Perm(n)
}
