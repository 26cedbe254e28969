// Package snapshot persists the in-memory registries as XML documents on
// local disk and restores them on startup. Snapshots are whole-state dumps;
// there is no incremental log.
package snapshot

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	accountDomain "github.com/tokenvault/tokenvault/internal/account/domain"
	tokenizationDomain "github.com/tokenvault/tokenvault/internal/tokenization/domain"
)

// xmlUser is the on-disk form of a registered account.
type xmlUser struct {
	Username string `xml:"Username"`
	Password string `xml:"Password"`
	Access   int    `xml:"Access"`
}

type xmlUsers struct {
	XMLName xml.Name  `xml:"Users"`
	Users   []xmlUser `xml:"User"`
}

// xmlToken is the on-disk form of an issued token. Owner repeats the owning
// card id so each token record is self-contained.
type xmlToken struct {
	ID    string `xml:"ID"`
	Owner string `xml:"Owner"`
}

// xmlCard is the on-disk form of a card with its issued tokens.
type xmlCard struct {
	ID     string     `xml:"ID"`
	Tokens []xmlToken `xml:"Tokens>Token"`
}

type xmlCards struct {
	XMLName xml.Name  `xml:"Cards"`
	Cards   []xmlCard `xml:"Card"`
}

// UserRegistry is the part of the account registry the snapshot layer needs.
type UserRegistry interface {
	Snapshot() []accountDomain.User
	Restore(users []accountDomain.User)
}

// CardRegistry is the part of the card registry the snapshot layer needs.
type CardRegistry interface {
	Snapshot() []tokenizationDomain.BankCard
	Restore(cards []tokenizationDomain.BankCard)
}

// Manager saves and loads both registries. It is not safe for concurrent
// Save calls; callers serialize snapshots.
type Manager struct {
	usersFile string
	cardsFile string
	users     UserRegistry
	cards     CardRegistry
	logger    *slog.Logger
}

// NewManager creates a snapshot manager over the given registry pair.
func NewManager(usersFile, cardsFile string, users UserRegistry, cards CardRegistry, logger *slog.Logger) *Manager {
	return &Manager{
		usersFile: usersFile,
		cardsFile: cardsFile,
		users:     users,
		cards:     cards,
		logger:    logger,
	}
}

// Load restores both registries from disk. A missing or unreadable file
// resets the matching registry to empty instead of failing startup; the
// cause is logged for the operator.
func (m *Manager) Load() {
	var userDoc xmlUsers
	if err := readXML(m.usersFile, &userDoc); err != nil {
		m.logger.Warn("starting with empty user registry",
			slog.String("file", m.usersFile),
			slog.Any("error", err),
		)
		m.users.Restore(nil)
	} else {
		users := make([]accountDomain.User, 0, len(userDoc.Users))
		for _, u := range userDoc.Users {
			users = append(users, accountDomain.NewUser(u.Username, u.Password, accountDomain.NewAccessLevel(u.Access)))
		}
		m.users.Restore(users)
		m.logger.Info("user registry loaded",
			slog.String("file", m.usersFile),
			slog.Int("users", len(users)),
		)
	}

	var cardDoc xmlCards
	if err := readXML(m.cardsFile, &cardDoc); err != nil {
		m.logger.Warn("starting with empty card registry",
			slog.String("file", m.cardsFile),
			slog.Any("error", err),
		)
		m.cards.Restore(nil)
	} else {
		cards := make([]tokenizationDomain.BankCard, 0, len(cardDoc.Cards))
		for _, c := range cardDoc.Cards {
			card := tokenizationDomain.BankCard{ID: c.ID}
			for _, token := range c.Tokens {
				card.Tokens = append(card.Tokens, tokenizationDomain.Token{ID: token.ID, Owner: c.ID})
			}
			cards = append(cards, card)
		}
		m.cards.Restore(cards)
		m.logger.Info("card registry loaded",
			slog.String("file", m.cardsFile),
			slog.Int("cards", len(cards)),
		)
	}
}

// Save writes both registries to disk, replacing the previous snapshots.
// Each file is written to a temporary sibling and renamed into place so a
// crash mid-write leaves the old snapshot intact.
func (m *Manager) Save() error {
	userDoc := xmlUsers{}
	for _, u := range m.users.Snapshot() {
		userDoc.Users = append(userDoc.Users, xmlUser{
			Username: u.Username,
			Password: u.Password,
			Access:   int(u.Access),
		})
	}
	if err := writeXML(m.usersFile, userDoc); err != nil {
		return fmt.Errorf("failed to save user registry: %w", err)
	}

	cardDoc := xmlCards{}
	for _, c := range m.cards.Snapshot() {
		card := xmlCard{ID: c.ID}
		for _, token := range c.Tokens {
			card.Tokens = append(card.Tokens, xmlToken{ID: token.ID, Owner: c.ID})
		}
		cardDoc.Cards = append(cardDoc.Cards, card)
	}
	if err := writeXML(m.cardsFile, cardDoc); err != nil {
		return fmt.Errorf("failed to save card registry: %w", err)
	}

	m.logger.Info("snapshot saved",
		slog.String("users_file", m.usersFile),
		slog.String("cards_file", m.cardsFile),
		slog.Int("users", len(userDoc.Users)),
		slog.Int("cards", len(cardDoc.Cards)),
	)
	return nil
}

func readXML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeXML(path string, v any) error {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	data = append([]byte(xml.Header), data...)

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
