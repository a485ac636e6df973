package phone

import (
	"strconv"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// Region 把 "+1"、"44"、"GB" 这类国家码转成 libphonenumber 的地区代码，无法识别时返回空串
func Region(countryCode string) string {
	code := strings.TrimSpace(countryCode)
	if code == "" {
		return ""
	}

	digits := strings.TrimPrefix(code, "+")
	if n, err := strconv.Atoi(digits); err == nil {
		region := libphonenumber.GetRegionCodeForCountryCode(n)
		if region == "ZZ" {
			return ""
		}
		return region
	}

	if len(code) == 2 {
		return strings.ToUpper(code)
	}
	return ""
}

// Split 按逗号、分号或换行拆分收件人文本
func Split(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})
}

// Normalize 去掉首尾空白并丢弃空项，能解析的号码统一格式化为 E.164。
// 无法解析的号码原样保留，不会被丢弃。
func Normalize(recipients []string, region string) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, format(r, region))
	}
	return out
}

func format(raw, region string) string {
	num, err := libphonenumber.Parse(raw, region)
	if err != nil || !libphonenumber.IsPossibleNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}
