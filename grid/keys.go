package grid

// Action is what a key press asks the editor to do.
type Action int

const (
	ActionNone Action = iota
	ActionMove
	ActionLookup
	ActionSave
	ActionAutoBalance
	ActionRemoveLine
	ActionDismiss
	ActionPrevious
	ActionNext
	ActionInverse
	ActionSort
	ActionNew
	ActionDelete
	ActionQuit
)

// KeyBinding is the meaning of one key.
type KeyBinding struct {
	Action    Action
	Direction Direction // set for ActionMove
	Help      string
}

// Keys maps key names, as reported by the terminal layer, to bindings.
var Keys = map[string]KeyBinding{
	"tab":         {Action: ActionMove, Direction: Right, Help: "cellule suivante"},
	"right":       {Action: ActionMove, Direction: Right},
	"shift+tab":   {Action: ActionMove, Direction: Left, Help: "cellule précédente"},
	"left":        {Action: ActionMove, Direction: Left},
	"up":          {Action: ActionMove, Direction: Up},
	"down":        {Action: ActionMove, Direction: Down},
	"enter":       {Action: ActionMove, Direction: Enter, Help: "valider la cellule"},
	"f4":          {Action: ActionLookup, Help: "recherche"},
	"f5":          {Action: ActionInverse, Help: "inverser"},
	"f6":          {Action: ActionSave, Help: "enregistrer"},
	"f7":          {Action: ActionSort, Help: "trier"},
	"f8":          {Action: ActionAutoBalance, Help: "équilibrer"},
	"ctrl+delete": {Action: ActionRemoveLine, Help: "supprimer la ligne"},
	"ctrl+k":      {Action: ActionRemoveLine},
	"esc":         {Action: ActionDismiss},
	"pgup":        {Action: ActionPrevious, Help: "pièce précédente"},
	"pgdown":      {Action: ActionNext, Help: "pièce suivante"},
	"ctrl+n":      {Action: ActionNew, Help: "nouvelle pièce"},
	"ctrl+d":      {Action: ActionDelete, Help: "supprimer la pièce"},
	"ctrl+c":      {Action: ActionQuit, Help: "quitter"},
}

// ActionForKey returns the binding for key, or ActionNone.
func ActionForKey(key string) KeyBinding {
	if b, ok := Keys[key]; ok {
		return b
	}
	return KeyBinding{Action: ActionNone}
}
