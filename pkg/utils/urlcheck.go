package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	schemePattern = regexp.MustCompile(`(?i)^https?://`)
	// 主机名校验：允许下划线（现实中存在此类主机名）
	hostPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+(:\d+)?$|^\[[0-9a-fA-F:]+\](:\d+)?$`)
	ipv4Pattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)
)

// HasHTTPScheme 判断 URL 是否带有显式的 http/https 前缀
func HasHTTPScheme(rawURL string) bool {
	return schemePattern.MatchString(rawURL)
}

// NormalizeURL 清洗并校验用户提交的 URL
// 无协议前缀时补 http://，仅接受 http/https 的绝对地址
func NormalizeURL(raw string) (string, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		return "", fmt.Errorf("error.url_required")
	}

	if !schemePattern.MatchString(normalized) {
		normalized = "http://" + normalized
	}

	parsed, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("error.url_invalid")
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("error.url_invalid")
	}

	host := parsed.Host
	if host == "" || !hostPattern.MatchString(host) {
		return "", fmt.Errorf("error.url_invalid")
	}

	// URL 长度限制（与存储列宽一致）
	if len(normalized) > 2048 {
		return "", fmt.Errorf("error.url_max_length")
	}

	return normalized, nil
}

// IsBlockedHost 判断 URL 的主机是否禁止服务端抓取（SSRF 防护）
// 只在预览抓取路径调用；跳转是浏览器行为，不做此检查
// 解析失败一律视为禁止（fail closed）
func IsBlockedHost(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return true
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if host == "127.0.0.1" || host == "::1" {
		return true
	}

	return isPrivateIPv4(host)
}

// isPrivateIPv4 识别点分十进制的私有/回环网段
// 10/8、127/8、192.168/16、172.16-31/12
func isPrivateIPv4(host string) bool {
	match := ipv4Pattern.FindStringSubmatch(host)
	if match == nil {
		return false
	}

	a, _ := strconv.Atoi(match[1])
	b, _ := strconv.Atoi(match[2])

	if a == 10 || a == 127 {
		return true
	}
	if a == 192 && b == 168 {
		return true
	}
	if a == 172 && b >= 16 && b <= 31 {
		return true
	}

	return false
}
