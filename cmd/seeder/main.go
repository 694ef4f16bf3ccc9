// Seeder loads a small fixture world into the oracle's stores for local
// development: a handful of monsters into the SQLite store and a set of
// rules and lore passages, embedded concurrently, into the Badger index.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/candlekeep/oracle/ai"
	"github.com/candlekeep/oracle/ai/openai"
	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/schema"
	"github.com/candlekeep/oracle/storage/badger"
	"github.com/candlekeep/oracle/storage/sqlite"
)

var monsters = core.Rows{
	{
		"name": "Beholder", "type": "Aberration", "size": "Large",
		"armor_class": 18, "hit_points": 180, "speed": "0 ft., fly 20 ft. (hover)",
		"challenge_rating": "13",
		"abilities":        "STR 10, DEX 14, CON 18, INT 17, WIS 15, CHA 17",
		"senses":           "darkvision 120 ft.", "languages": "Deep Speech, Undercommon",
		"special_abilities": "Antimagic Cone", "actions": "Bite, Eye Rays",
		"legendary_actions": "Eye Ray", "source": "Monster Manual",
	},
	{
		"name": "Goblin", "type": "Humanoid", "size": "Small",
		"armor_class": 15, "hit_points": 7, "speed": "30 ft.",
		"challenge_rating": "1/4",
		"abilities":        "STR 8, DEX 14, CON 10, INT 10, WIS 8, CHA 8",
		"skills":           "Stealth +6", "senses": "darkvision 60 ft.",
		"languages": "Common, Goblin", "special_abilities": "Nimble Escape",
		"actions": "Scimitar, Shortbow", "source": "Monster Manual",
	},
	{
		"name": "Adult Red Dragon", "type": "Dragon", "size": "Huge",
		"armor_class": 19, "hit_points": 256, "speed": "40 ft., climb 40 ft., fly 80 ft.",
		"challenge_rating":  "17",
		"abilities":         "STR 27, DEX 10, CON 25, INT 16, WIS 13, CHA 21",
		"damage_immunities": "fire", "senses": "blindsight 60 ft., darkvision 120 ft.",
		"languages": "Common, Draconic", "special_abilities": "Legendary Resistance (3/Day)",
		"actions": "Bite, Claw, Tail, Fire Breath", "legendary_actions": "Detect, Tail Attack, Wing Attack",
		"source": "Monster Manual",
	},
	{
		"name": "Adult Black Dragon", "type": "Dragon", "size": "Huge",
		"armor_class": 19, "hit_points": 195, "speed": "40 ft., fly 80 ft., swim 40 ft.",
		"challenge_rating":  "14",
		"abilities":         "STR 23, DEX 14, CON 21, INT 14, WIS 13, CHA 17",
		"damage_immunities": "acid", "senses": "blindsight 60 ft., darkvision 120 ft.",
		"languages": "Common, Draconic", "special_abilities": "Amphibious, Legendary Resistance (3/Day)",
		"actions": "Bite, Claw, Tail, Acid Breath", "legendary_actions": "Detect, Tail Attack, Wing Attack",
		"source": "Monster Manual",
	},
	{
		"name": "Owlbear", "type": "Monstrosity", "size": "Large",
		"armor_class": 13, "hit_points": 59, "speed": "40 ft.",
		"challenge_rating": "3",
		"abilities":        "STR 20, DEX 12, CON 17, INT 3, WIS 12, CHA 7",
		"skills":           "Perception +3", "senses": "darkvision 60 ft.",
		"special_abilities": "Keen Sight and Smell", "actions": "Beak, Claws",
		"source": "Monster Manual",
	},
	{
		"name": "Lich", "type": "Undead", "size": "Medium",
		"armor_class": 17, "hit_points": 135, "speed": "30 ft.",
		"challenge_rating":     "21",
		"abilities":            "STR 11, DEX 16, CON 16, INT 20, WIS 14, CHA 16",
		"damage_resistances":   "cold, lightning, necrotic",
		"condition_immunities": "charmed, exhaustion, frightened, paralyzed, poisoned",
		"senses":               "truesight 120 ft.", "languages": "Common plus up to five other languages",
		"special_abilities": "Legendary Resistance (3/Day), Rejuvenation, Spellcasting",
		"actions":           "Paralyzing Touch", "legendary_actions": "Cantrip, Paralyzing Touch, Frightening Gaze",
		"source": "Monster Manual",
	},
	{
		"name": "Frost Giant", "type": "Giant", "size": "Huge",
		"armor_class": 15, "hit_points": 138, "speed": "40 ft.",
		"challenge_rating":  "8",
		"abilities":         "STR 23, DEX 9, CON 21, INT 9, WIS 10, CHA 12",
		"damage_immunities": "cold", "skills": "Athletics +9, Perception +3",
		"languages": "Giant", "actions": "Greataxe, Rock",
		"source": "Monster Manual",
	},
	{
		"name": "Mimic", "type": "Monstrosity", "size": "Medium",
		"armor_class": 12, "hit_points": 58, "speed": "15 ft.",
		"challenge_rating": "2",
		"abilities":        "STR 17, DEX 12, CON 15, INT 5, WIS 13, CHA 8",
		"skills":           "Stealth +5", "condition_immunities": "prone",
		"senses":            "darkvision 60 ft.",
		"special_abilities": "Shapechanger, Adhesive, False Appearance",
		"actions":           "Pseudopod, Bite", "source": "Monster Manual",
	},
}

var loreChunks = []*core.TextChunk{
	{
		Source: "Rules: Grappling",
		Text: "When you want to grab a creature or wrestle with it, you can use the Attack action to make a special melee attack, a grapple. The target of your grapple must be no more than one size larger than you and must be within your reach. Using at least one free hand, you try to seize the target by making a grapple check instead of an attack roll: a Strength (Athletics) check contested by the target's Strength (Athletics) or Dexterity (Acrobatics) check.",
	},
	{
		Source: "Rules: Grappling",
		Text: "A grappled creature's speed becomes 0, and it can't benefit from any bonus to its speed. The condition ends if the grappler is incapacitated, or if an effect removes the grappled creature from the reach of the grappler or grappling effect.",
	},
	{
		Source: "Rules: Spellcasting",
		Text: "Spellcasting in fifth edition uses spell slots. Each spell has a level, and casting it consumes a spell slot of that level or higher. Casting a spell at a higher level can strengthen its effect. Spell slots are regained when the caster finishes a long rest.",
	},
	{
		Source: "Rules: Combat",
		Text: "Most rolls use a twenty-sided die. Players roll the d20 and add modifiers based on their character's abilities and proficiency. Rolling a 20 on an attack roll is a critical hit, doubling the attack's damage dice.",
	},
	{
		Source: "Rules: Conditions",
		Text: "An incapacitated creature can't take actions or reactions. A paralyzed creature is incapacitated and can't move or speak; attack rolls against it have advantage, and any attack that hits it is a critical hit if the attacker is within 5 feet.",
	},
	{
		Source: "Lore: Beholders",
		Text: "Beholders are xenophobic tyrants of the Underdark, each convinced of its own perfection. A beholder's central eye projects an antimagic cone, and its eyestalks each carry a different deadly ray. They carve their lairs with disintegration rays into vertical warrens no intruder can easily navigate.",
	},
	{
		Source: "Lore: Dragons",
		Text: "Chromatic dragons are driven by greed and cruelty. Red dragons, the most covetous, nest in mountains and hoard treasure above all else; black dragons lurk in swamps and delight in watching their prey despair. A dragon's age category, from wyrmling to ancient, governs its power.",
	},
	{
		Source: "Lore: The Forgotten Realms",
		Text: "The elves of Faerun trace their lineage to the Tel-quessir who crossed from the Feywild in ages past. The Crown Wars sundered their great kingdoms, and the retreat to Evermeet marked the long twilight of elven dominion over the Realms.",
	},
	{
		Source: "Lore: Liches",
		Text: "A lich is a wizard who has traded death for undeath through the ritual of becoming. Its soul resides in a phylactery; destroying the lich's body merely banishes it until it reforms beside that vessel. Liches scheme across centuries and treat living visitors as components.",
	},
	{
		Source: "Spells: Fireball",
		Text: "A bright streak flashes from your pointing finger to a point you choose and blossoms into an explosion of flame. Each creature in a 20-foot-radius sphere must make a Dexterity saving throw, taking 8d6 fire damage on a failure or half as much on a success.",
	},
}

var (
	storePath      = flag.String("store", "oracle.db", "path to the SQLite monster store")
	indexPath      = flag.String("index", "oracle-index", "path to the BadgerDB lore index directory")
	host           = flag.String("host", "http://localhost:11434/v1", "model service host URL")
	embeddingModel = flag.String("embedding-model", "embeddinggemma", "embedding model name")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

func main() {
	ctx := context.Background()
	logger := slog.Default()

	if err := seedMonsters(ctx); err != nil {
		logger.Error("error seeding monster store", "err", err)
		os.Exit(1)
	}
	logger.Info("monster store seeded", "path", *storePath, "monsters", len(monsters))

	if err := seedLore(ctx); err != nil {
		logger.Error("error seeding lore index", "err", err)
		os.Exit(1)
	}
	logger.Info("lore index seeded", "path", *indexPath, "chunks", len(loreChunks))
}

func seedMonsters(ctx context.Context) error {
	loader, err := sqlite.OpenLoader(*storePath)
	if err != nil {
		return err
	}
	defer loader.Close()

	descriptor := schema.Monsters()
	if err := loader.CreateTable(ctx, descriptor); err != nil {
		return err
	}
	return loader.Insert(ctx, descriptor, monsters)
}

func seedLore(ctx context.Context) error {
	config := ai.NewConfig(
		ai.WithHost(*host),
		ai.WithEmbeddingModel(*embeddingModel),
	)
	embedder, err := openai.NewEmbedder(config)
	if err != nil {
		return err
	}

	if err := embedChunks(ctx, embedder); err != nil {
		return err
	}

	backend, err := badger.OpenBackend(*indexPath, false)
	if err != nil {
		return err
	}
	defer backend.Close()

	_, err = badger.NewChunkRepository(backend).AddChunks(ctx, loreChunks...)
	return err
}

// embedChunks populates each chunk's vector, embedding concurrently.
func embedChunks(ctx context.Context, embedder ai.Embedder) error {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, chunk := range loreChunks {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			vector, err := embedder.EmbedText(ctx, chunk.Text)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			chunk.Vector = vector
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
	}
	wg.Wait()
	return firstErr
}
