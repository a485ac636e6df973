package address

import (
	"math"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	hexAlphabet    = "0123456789abcdef"
	bech32Alphabet = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

// format 各币种充值地址的外观：固定前缀加指定字符集的随机部分
type format struct {
	prefix   string
	alphabet string
	length   int
}

var formats = map[string]format{
	"BTC":  {prefix: "bc1q", alphabet: bech32Alphabet, length: 38},
	"ETH":  {prefix: "0x", alphabet: hexAlphabet, length: 40},
	"USDT": {prefix: "T", alphabet: base58Alphabet, length: 33},
	"LTC":  {prefix: "L", alphabet: base58Alphabet, length: 33},
	"XMR":  {prefix: "4", alphabet: base58Alphabet, length: 94},
	"SOL":  {alphabet: base58Alphabet, length: 44},
}

// 配置了未列出的币种时使用
var fallbackFormat = format{alphabet: base58Alphabet, length: 40}

// Generator 为每个支付意图生成唯一的充值地址。
// 地址只用于匹配入账，不是真实的链上地址。
type Generator struct {
	newID func() uuid.UUID
}

func NewGenerator() *Generator {
	return &Generator{newID: uuid.New}
}

// Generate 按币种生成外观相符的地址，随机部分由 uuid 编码而来，保证唯一
func (g *Generator) Generate(currency string) (string, error) {
	f, ok := formats[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		f = fallbackFormat
	}

	bits := float64(f.length) * math.Log2(float64(len(f.alphabet)))
	return f.prefix + encode(g.entropy(int(bits/8)), f.alphabet, f.length), nil
}

// entropy 拼接若干 uuid 后取末尾 n 字节，第一个 uuid 位于末尾，总会被保留。
// n 按字符集容量向下取整，编码不会截断，不同 uuid 必然得到不同地址。
func (g *Generator) entropy(n int) []byte {
	var b []byte
	for len(b) < n {
		id := g.newID()
		b = append(id[:], b...)
	}
	return b[len(b)-n:]
}

func encode(b []byte, alphabet string, length int) string {
	n := new(big.Int).SetBytes(b)
	base := big.NewInt(int64(len(alphabet)))
	mod := new(big.Int)

	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		n.DivMod(n, base, mod)
		out[i] = alphabet[mod.Int64()]
	}
	return string(out)
}
