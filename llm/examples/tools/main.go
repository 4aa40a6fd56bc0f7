package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/capability"
	"github.com/hrayleung/jin-llm/llm/providers"
	"github.com/hrayleung/jin-llm/llm/resolve"
)

// getWeather 模拟天气查询工具
func getWeather(location string) string {
	weatherData := map[string]string{
		"北京": "22°C, 晴朗",
		"上海": "25°C, 多云",
		"深圳": "28°C, 阴天",
	}
	if weather, ok := weatherData[location]; ok {
		return fmt.Sprintf("%s 的天气: %s", location, weather)
	}
	return fmt.Sprintf("%s 的天气: 未知", location)
}

func main() {
	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		log.Fatal("API_KEY environment variable is required")
	}
	family, ok := llm.ParseFamily(os.Getenv("PROVIDER"))
	if !ok {
		family = llm.FamilyDeepSeek
	}
	modelName := os.Getenv("MODEL")
	if modelName == "" {
		modelName = "deepseek-chat"
	}

	weatherTool := llm.ToolDefinition{
		Name:        "get_weather",
		Description: "获取指定地点的当前天气",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"location": {"type": "string", "description": "城市名称，如：北京、上海、深圳"}},
			"required": ["location"]
		}`),
	}

	adapter, err := providers.New(family, apiKey, providers.Config{})
	if err != nil {
		log.Fatal(err)
	}
	client := llm.New(adapter, resolve.Default().For(family))
	model := capability.Lookup(family, modelName).ModelInfo(modelName)

	messages := []llm.Message{llm.User("北京和上海今天天气怎么样？")}

	// 循环：模型可能需要多次调用工具（例如分别查询多个城市）
	const maxSteps = 8
	for step := 0; step < maxSteps; step++ {
		col, err := client.Generate(context.Background(), model, messages, []llm.ToolDefinition{weatherTool})
		if err != nil {
			log.Fatal(err)
		}
		msg := col.Message()
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			fmt.Println("\n最终回复:")
			fmt.Println(msg.Text())
			return
		}

		fmt.Println("模型决定调用工具:")
		var results []llm.ToolResult
		for _, tc := range msg.ToolCalls {
			fmt.Printf("  - 调用: %s\n", tc.Name)
			fmt.Printf("    参数: %s\n", tc.ArgumentsJSON())

			if r, bad := tc.ResultForError(); bad {
				results = append(results, r)
				continue
			}
			location, _ := tc.Arguments["location"].(string)
			results = append(results, llm.ToolResult{ToolCallID: tc.ID, Name: tc.Name, Content: getWeather(location)})
		}
		messages = append(messages, llm.ToolResults(results...))
	}

	log.Fatalf("exceeded max tool-call steps (%d)", maxSteps)
}
