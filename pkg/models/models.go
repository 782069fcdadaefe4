package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LoanStatus string

const (
	StatusMaintenance LoanStatus = "maintenance"
	StatusOnLoan      LoanStatus = "on-loan"
	StatusAvailable   LoanStatus = "available"
	StatusReserved    LoanStatus = "reserved"
)

var validStatuses = map[LoanStatus]bool{
	StatusMaintenance: true,
	StatusOnLoan:      true,
	StatusAvailable:   true,
	StatusReserved:    true,
}

func (s LoanStatus) Valid() bool {
	return validStatuses[s]
}

// DateLayout is the wire format of every date field.
const DateLayout = "2006-01-02"

type Genre struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:200;not null"`
}

type Language struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:200;not null"`
}

type Author struct {
	ID          uint       `gorm:"primaryKey"`
	FirstName   string     `gorm:"size:100;not null"`
	LastName    string     `gorm:"size:100;not null"`
	DateOfBirth *time.Time `gorm:"type:date"`
	DateOfDeath *time.Time `gorm:"type:date"`
}

func (a Author) String() string {
	return fmt.Sprintf("%s %s", a.LastName, a.FirstName)
}

type Book struct {
	ID         uint      `gorm:"primaryKey"`
	Title      string    `gorm:"size:200;not null;index"`
	Summary    string    `gorm:"size:1000;not null"`
	ISBN       string    `gorm:"column:isbn;size:13;not null"`
	AuthorID   *uint     `gorm:"index"`
	Author     *Author   `gorm:"constraint:OnDelete:SET NULL"`
	LanguageID *uint     `gorm:"index"`
	Language   *Language `gorm:"constraint:OnDelete:SET NULL"`
	Genres     []Genre   `gorm:"many2many:book_genres"`
}

// DisplayGenre previews at most the first three genres, without an ellipsis
// when more exist.
func (b Book) DisplayGenre() string {
	names := make([]string, 0, 3)
	for i, g := range b.Genres {
		if i == 3 {
			break
		}
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

func (b Book) GenreIDs() []uint {
	ids := make([]uint, len(b.Genres))
	for i, g := range b.Genres {
		ids[i] = g.ID
	}
	return ids
}

type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Username  string `gorm:"size:150;not null;uniqueIndex"`
	CreatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

type BookInstance struct {
	ID         string     `gorm:"type:uuid;primaryKey"`
	BookID     *uint      `gorm:"index"`
	Book       *Book      `gorm:"constraint:OnDelete:SET NULL"`
	Imprint    string     `gorm:"size:200;not null"`
	DueBack    *time.Time `gorm:"type:date;index"`
	Status     LoanStatus `gorm:"size:20;not null;default:'maintenance'"`
	BorrowerID *string    `gorm:"type:uuid;index"`
	Borrower   *User      `gorm:"constraint:OnDelete:SET NULL"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BeforeCreate assigns a random id so copy ids cannot be guessed from
// neighbouring ones.
func (bi *BookInstance) BeforeCreate(tx *gorm.DB) error {
	if bi.ID == "" {
		bi.ID = uuid.New().String()
	}
	if bi.Status == "" {
		bi.Status = StatusMaintenance
	}
	return nil
}

// IsOverdue reports whether the due date has strictly passed on today's
// calendar day. A copy due today is not overdue.
func (bi BookInstance) IsOverdue(today time.Time) bool {
	if bi.DueBack == nil {
		return false
	}
	return Day(today).After(Day(*bi.DueBack))
}

func (bi BookInstance) String() string {
	title := ""
	if bi.Book != nil {
		title = bi.Book.Title
	}
	return fmt.Sprintf("%s %s", bi.ID, title)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// All lists every table the catalog migrates.
func All() []interface{} {
	return []interface{}{
		&Genre{}, &Language{}, &Author{}, &Book{}, &User{}, &BookInstance{},
	}
}
