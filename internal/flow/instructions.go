package flow

import "aptitude_backend/pkg/apiclient"

var DefaultInstructions = []string{
	"Read each question carefully before selecting an answer.",
	"Each question has exactly one correct option.",
	"You can move between questions and change your answers at any time before submitting.",
	"Use \"Mark for Review\" to flag questions you want to revisit.",
	"The test is submitted automatically when the timer reaches zero.",
}

var DefaultRules = []string{
	"Do not refresh or close the browser window during the test.",
	"Do not switch tabs or leave full-screen mode.",
	"Use of external help or other devices is not permitted.",
	"Once submitted, answers cannot be changed.",
}

// Instructions 说明页的只读视图
type Instructions struct {
	Loading bool
	Details *apiclient.TestDetails
}

func loadingInstructions() *Instructions {
	return &Instructions{Loading: true}
}

func NewInstructions(details *apiclient.TestDetails) *Instructions {
	return &Instructions{Details: details}
}

// Items 服务端返回空列表时使用默认说明
func (i *Instructions) Items() []string {
	if i.Details == nil || len(i.Details.Instructions) == 0 {
		return DefaultInstructions
	}
	return i.Details.Instructions
}

func (i *Instructions) Rules() []string {
	if i.Details == nil || len(i.Details.Rules) == 0 {
		return DefaultRules
	}
	return i.Details.Rules
}
