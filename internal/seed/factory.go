package seed

import (
	"fmt"
	"strings"
	"time"

	"minifeed/internal/models"
	"minifeed/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds valid service inputs filled with fake data.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory returns a factory whose output is reproducible for a non-zero seed.
func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{faker: gofakeit.New(seed)}
}

// slug keeps lowercase ASCII letters and digits, truncated to max bytes.
func slug(s string, max int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == max {
			break
		}
	}
	return b.String()
}

// User returns registration input for the index-th generated user. The index keeps
// usernames and emails unique within one run.
func (f *Factory) User(index int, password string) service.RegisterInput {
	first := f.faker.FirstName()
	last := f.faker.LastName()

	name := slug(first, 20)
	if name == "" {
		name = "user"
	}
	if l := slug(last, 20); l != "" {
		name += "_" + l
	}
	username := fmt.Sprintf("%s%d", name, index+1)
	fullName := first + " " + last

	return service.RegisterInput{
		Username: username,
		Email:    username + "@" + slug(f.faker.DomainName(), 30) + ".example",
		FullName: &fullName,
		Password: password,
	}
}

// Post returns post input for authorID. Roughly one post in five carries an image path.
func (f *Factory) Post(authorID uint) service.CreatePostInput {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), ".")
	if len(title) > models.MaxTitleLength {
		title = title[:models.MaxTitleLength]
	}

	in := service.CreatePostInput{
		AuthorID: authorID,
		Title:    title,
		Content:  f.faker.Paragraph(1, f.faker.Number(2, 4), 12, "\n"),
	}
	if f.faker.Number(1, 5) == 1 {
		path := fmt.Sprintf("uploads/%s.jpg", f.faker.UUID())
		in.ImagePath = &path
	}
	return in
}

// Chance reports true with probability p.
func (f *Factory) Chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}
