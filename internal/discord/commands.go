package discord

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"groovedeck/internal/command"
)

// Guild command registration. Creating application commands is heavily
// rate limited, so definitions are hashed and cached on disk per guild
// and only changed commands hit the API on startup.

const commandCreateInterval = 25 * time.Millisecond // ~40/s, Discord's global ceiling

func (b *Bot) syncCommands(guildID string) error {
	appID := b.session.State.User.ID
	if appID == "" {
		me, err := b.session.User("@me")
		if err != nil {
			return fmt.Errorf("resolving application id: %w", err)
		}
		appID = me.ID
	}

	existing, err := b.session.ApplicationCommands(appID, guildID)
	if err != nil {
		log.Warn().Str("guild", guildID).Err(err).Msg("listing existing commands failed")
	}
	cached := loadCommandHashes(guildID)

	wanted := make(map[string]*discordgo.ApplicationCommand)
	hashes := make(map[string]string)
	for _, cmd := range b.commands.All() {
		provider, ok := cmd.(command.SlashProvider)
		if !ok {
			continue
		}
		def := provider.SlashDefinition()
		if def == nil {
			continue
		}
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		wanted[def.Name] = def
		hashes[def.Name] = hashDefinition(def)
	}

	for _, old := range existing {
		if _, keep := wanted[old.Name]; keep {
			continue
		}
		log.Info().Str("guild", guildID).Str("command", old.Name).Msg("deleting obsolete command")
		if err := b.session.ApplicationCommandDelete(appID, guildID, old.ID); err != nil {
			log.Warn().Str("guild", guildID).Str("command", old.Name).Err(err).Msg("delete failed")
		}
		delete(cached, old.Name)
	}

	names := make([]string, 0, len(wanted))
	for name := range wanted {
		names = append(names, name)
	}
	sort.Strings(names)

	created := 0
	for _, name := range names {
		if cached[name] == hashes[name] {
			continue
		}
		if created > 0 {
			time.Sleep(commandCreateInterval)
		}
		if _, err := b.session.ApplicationCommandCreate(appID, guildID, wanted[name]); err != nil {
			log.Error().Str("guild", guildID).Str("command", name).Err(err).Msg("create failed")
			continue
		}
		log.Info().Str("guild", guildID).Str("command", name).Msg("command registered")
		cached[name] = hashes[name]
		created++
	}

	saveCommandHashes(guildID, cached)
	return nil
}

func commandCachePath(guildID string) string {
	return filepath.Join("data", "commands", guildID+".json")
}

func loadCommandHashes(guildID string) map[string]string {
	hashes := make(map[string]string)
	raw, err := os.ReadFile(commandCachePath(guildID))
	if err == nil {
		_ = json.Unmarshal(raw, &hashes)
	}
	return hashes
}

func saveCommandHashes(guildID string, hashes map[string]string) {
	path := commandCachePath(guildID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Debug().Err(err).Msg("command cache dir")
		return
	}
	raw, _ := json.MarshalIndent(hashes, "", "  ")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		log.Debug().Err(err).Msg("command cache write")
	}
}

// hashDefinition fingerprints a definition over the fields that matter
// for registration, ignoring IDs and versions the API fills in.
func hashDefinition(def *discordgo.ApplicationCommand) string {
	data, _ := json.Marshal(normalizeDefinition(def))
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func normalizeDefinition(def *discordgo.ApplicationCommand) map[string]any {
	obj := map[string]any{
		"name":        def.Name,
		"description": def.Description,
		"type":        def.Type,
	}
	if len(def.Options) > 0 {
		obj["options"] = normalizeOptions(def.Options)
	}
	return obj
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]any {
	out := make([]map[string]any, len(opts))
	for i, o := range opts {
		entry := map[string]any{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]any, len(o.Choices))
			for j, c := range o.Choices {
				choices[j] = map[string]any{"name": c.Name, "value": c.Value}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i]["name"].(string) < out[j]["name"].(string)
	})
	return out
}
