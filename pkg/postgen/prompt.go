package postgen

import (
	"fmt"
	"unicode/utf16"

	"github.com/papercomputeco/inkwell/pkg/llm"
)

// MinNameLength is the shortest accepted topic, in UTF-16 code units, which is
// how browser clients measure it.
const MinNameLength = 5

// SystemPrompt instructs the model to write a social-network post in Russian.
const SystemPrompt = `Ты — блогер. Напиши пост для социальной сети на заданную тему.

Требования:
1.  Начни с привлекающего внимание введения (избегай шаблонов вроде "Привет, подписчики!").
2.  Раскрой тему через неочевидный ракурс, свежую метафору, личный опыт с изюминкой или малоизвестный факт. Избегай поверхностных советов, общеизвестных истин, клише и шаблонных фраз.
3.  Вызови искренний эмоциональный отклик (любопытство, удивление, вдохновение и т.д.). Будь аутентичным.
4.  Заверши пост сильным призывом к действию, провокационным вопросом или запоминающейся фразой (не просто "А что вы думаете?").
5.  Объем: 3-5 абзацев.
6.  Запрещено: хэштеги, упоминания (@), пересказ общедоступной информации.

Пиши на русском языке.`

// Request is a generation request as submitted by the post form.
type Request struct {
	Name  string `json:"name"`
	Style Style  `json:"style,omitempty"`
}

// Validate checks the topic length and style, filling in the default style.
func (r *Request) Validate() error {
	if nameLength(r.Name) < MinNameLength {
		return &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("Тема поста должна содержать минимум %d символов", MinNameLength),
		}
	}

	style, err := ParseStyle(string(r.Style))
	if err != nil {
		return err
	}
	r.Style = style
	return nil
}

// nameLength counts s in UTF-16 code units: one per character of the Basic
// Multilingual Plane, two for anything above it such as emoji.
func nameLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// UserPrompt is the user turn for a validated request.
func (r Request) UserPrompt() string {
	return fmt.Sprintf("Напиши пост на тему: \"%s\" в %s.", r.Name, r.Style.Description())
}

// Messages builds the conversation sent to the model.
func (r Request) Messages() []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: r.UserPrompt()},
	}
}
