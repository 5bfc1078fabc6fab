package shortid

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Alphabet 去除易混淆字符（0/1/I/O/l 等）后的 57 个符号
const Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Length 短链 ID 固定长度
const Length = 6

// MaxAttempts 生成时的总尝试次数上限
const MaxAttempts = 3

// ErrExhausted 连续碰撞耗尽重试次数
var ErrExhausted = errors.New("shortid: exhausted generation attempts")

// ExistsFunc 唯一性探测回调，返回候选 ID 是否已被占用
type ExistsFunc func(id string) (bool, error)

// Generator 随机短链 ID 生成器
// draw 可注入，便于测试中产生确定序列
type Generator struct {
	draw func() (string, error)
}

func New() *Generator {
	return &Generator{draw: randomID}
}

// NewWithDraw 使用自定义抽取函数构造生成器
func NewWithDraw(draw func() (string, error)) *Generator {
	return &Generator{draw: draw}
}

// Generate 抽取候选 ID 并通过 exists 探测唯一性，碰撞则重抽
// 最多尝试 MaxAttempts 次，全部占用时返回 ErrExhausted
// 生成与后续插入不构成一个事务，残余竞争由存储层唯一约束兜底
func (g *Generator) Generate(exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		id, err := g.draw()
		if err != nil {
			return "", err
		}

		occupied, err := exists(id)
		if err != nil {
			return "", err
		}
		if !occupied {
			return id, nil
		}
	}
	return "", ErrExhausted
}

// IsValid 判断字符串是否为合法的短链 ID 形态
func IsValid(id string) bool {
	if len(id) != Length {
		return false
	}
	for _, r := range id {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}

func randomID() (string, error) {
	result := make([]byte, Length)
	max := big.NewInt(int64(len(Alphabet)))

	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = Alphabet[n.Int64()]
	}

	return string(result), nil
}
