package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/capability"
	"github.com/hrayleung/jin-llm/llm/providers"
	"github.com/hrayleung/jin-llm/llm/resolve"
)

func main() {
	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		log.Fatal("API_KEY environment variable is required")
	}
	family := llm.FamilyOpenAI
	modelName := "gpt-5-mini"

	adapter, err := providers.New(family, apiKey, providers.Config{})
	if err != nil {
		log.Fatal(err)
	}
	client := llm.New(adapter, resolve.Default().For(family))

	// 非流式调用：adapter 仍然返回 Stream，只是事件一次性给出
	s, err := client.SendMessage(context.Background(),
		capability.Lookup(family, modelName).ModelInfo(modelName),
		[]llm.Message{llm.System("回答尽量简短"), llm.User("用一句话介绍 Go 语言")},
		llm.BuildControls(llm.WithMaxTokens(256)), nil, false)
	if err != nil {
		log.Fatal(err)
	}
	col, err := llm.Drain(s)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(col.Text())
}
