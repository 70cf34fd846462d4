// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package generator

import (
	"fmt"
	"strings"
	"text/template"
)

// SystemMessage is sent ahead of every prompt.
const SystemMessage = "You are a helpful social media content creator."

var promptTemplate = template.Must(template.New("post").Parse(`
You are an expert social media content creator.
Your task is to write a fresh promotional post for the following
Product Description:
------
{{.Description}}
------
The post should contain:
Title: a short, powerful line that says what this product is about
Message: a creative promotional message ready for social media feeds, under 100 words.
Tags: the hashtags people would normally use for this product on social media

Give me the final post only. Do not include the labels "Title:", "Message:" or "Tags:".
Begin!
`))

// BuildPrompt substitutes description into the post prompt.
func BuildPrompt(description string) (string, error) {
	var b strings.Builder
	if err := promptTemplate.Execute(&b, struct{ Description string }{description}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return b.String(), nil
}
