package util

import (
	"encoding/json"
	"regexp"
	"strings"
)

// 兼容 ```json ... ``` 与无标签代码块
var codeBlockRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// ExtractJSON 从大模型返回的文本中恢复 JSON。
// 依次尝试：整段解析 -> 代码块解析 -> 首尾大括号截取。
// 三种策略都失败时返回 nil，从不 panic。
func ExtractJSON(text string) json.RawMessage {
	// 1. 整段直接解析
	trimmed := strings.TrimSpace(text)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}

	// 2. 提取 markdown 代码块
	if m := codeBlockRe.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if inner != "" && json.Valid([]byte(inner)) {
			return json.RawMessage(inner)
		}
	}

	// 3. 首个 { 到最后一个 } 的兜底截取
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate)
		}
	}

	return nil
}
