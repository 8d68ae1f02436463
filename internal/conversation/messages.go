package conversation

import (
	"fmt"
	"strings"

	"gardenDesignAi/internal/lexicon"
	"gardenDesignAi/internal/orderedset"
	"gardenDesignAi/internal/vision"
)

// User-facing copy is Italian.
const (
	msgWelcome = `🌿 **Benvenuto in Garden Design AI!**

Sono il tuo consulente personale per trasformare il tuo spazio esterno.

**Come funziona:**
1. 📸 Carica una foto del tuo giardino o cortile attuale
2. 💬 Dimmi cosa vorresti cambiare
3. 🎨 Genero un rendering fotorealistico del nuovo design

**Importante:** modifico SOLO il giardino e il landscape. La casa e le strutture restano esattamente come sono.

**Per iniziare, carica una foto del tuo spazio esterno.**`

	msgUploadFirst   = "📸 Per favore, carica prima una foto del tuo giardino."
	msgConfigError   = "⚠️ Errore di configurazione: %v\n\nConfigura GOOGLE_API_KEY nel file .env"
	msgAnalysisError = "❌ Errore nell'analisi: %v"
	msgAnalysisDone  = "✅ **Analisi completata!**\n\n%s"

	msgStyleMenu = `**Ora dimmi:** che tipo di giardino vorresti? Scegli uno stile:

• 🏛️ **Moderno** - linee pulite, minimalista
• 🌿 **Mediterraneo** - ulivi, lavanda, terracotta
• 🌴 **Tropicale** - palme, piante esotiche, lussureggiante
• ☯️ **Zen** - giapponese, ghiaia, bambù
• 🌹 **Inglese** - romantico, fiori, rose
• 🔥 **Contemporaneo** - outdoor living, cucina esterna, fire pit

Scrivi lo stile che preferisci!`

	msgStyleChosen = `Perfetto! Hai scelto lo stile **%s** 🎨

Ora dimmi cosa vorresti nel tuo giardino. Puoi scegliere più elementi:

• 🏊 **Piscina** (forma, dimensione)
• 🌱 **Prato** (inglese, rustico, sintetico)
• 🌳 **Piante e alberi** (quali tipi?)
• 🚶 **Vialetti** (pietra, ghiaia, legno)
• 🏠 **Pergola o gazebo**
• 💡 **Illuminazione**
• ⛲ **Fontana o giochi d'acqua**
• 🍖 **Area barbecue o cucina**
• 🛋️ **Area relax e sedute**

Descrivi liberamente cosa desideri, anche cosa NON vuoi!`

	msgNoElements    = "Non ho capito quali elementi vorresti aggiungere. Prova a descriverli, ad esempio: *\"una piscina rettangolare e un prato, niente fontana\"*."
	msgOutOfScope    = "ℹ️ Posso modificare solo il giardino e il landscape. Non posso intervenire su: %s."
	msgInterpretFail = "❌ Non sono riuscito a interpretare la richiesta: %v\n\nRiprova."
	msgChatFail      = "❌ Errore nella risposta: %v"
	msgEmptyMessage  = "Scrivimi pure cosa desideri."

	msgNoUpload      = "⚠️ Nessuna immagine caricata. Carica prima una foto del giardino."
	msgNoRender      = "⚠️ Non c'è ancora un rendering da modificare. Scrivi **\"genera\"** per crearne uno."
	msgRenderFailed  = "❌ **Errore nella generazione:**\n\n%v\n\nRiprova quando vuoi."
	msgRefineFailed  = "❌ Errore nella modifica: %v"
	msgRenderCaption = "🌿 **Ecco il rendering del tuo nuovo giardino!**\n\nLa casa e le strutture sono rimaste identiche, ho trasformato solo il landscape."
	msgRefineCaption = "🌿 **Ecco il rendering aggiornato:**"

	msgAfterRender = `💡 **Cosa puoi fare ora:**

• Chiedi modifiche specifiche (es. *"aggiungi più fiori"*, *"cambia forma piscina"*)
• Scrivi **"rigenera"** per un nuovo rendering
• Carica una nuova foto per un altro progetto

Dimmi cosa ne pensi!`
)

// Starters are suggested first messages for a new conversation.
var Starters = []Starter{
	{Label: "🏊 Voglio una piscina", Message: "Vorrei aggiungere una bella piscina al mio giardino"},
	{Label: "🌿 Giardino verde", Message: "Vorrei un giardino con tanto verde, prato e piante"},
	{Label: "🏝️ Stile tropicale", Message: "Mi piacerebbe uno stile tropicale con palme"},
	{Label: "☯️ Giardino zen", Message: "Vorrei un giardino zen giapponese rilassante"},
}

// Starter is a suggested opening message.
type Starter struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

func analysisText(a vision.Analysis) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(a.Summary))
	if len(a.ExistingElements) > 0 {
		fmt.Fprintf(&b, "\n\n**Elementi presenti:** %s", strings.Join(a.ExistingElements, ", "))
	}
	if a.Condition != "" {
		fmt.Fprintf(&b, "\n**Condizioni:** %s", a.Condition)
	}
	if len(a.Potential) > 0 {
		fmt.Fprintf(&b, "\n**Potenziale:** %s", strings.Join(a.Potential, ", "))
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		text = "Ho studiato la foto del tuo spazio esterno."
	}
	return fmt.Sprintf(msgAnalysisDone, text)
}

func summaryText(s *Session) string {
	var b strings.Builder
	b.WriteString("📋 **Riepilogo del tuo progetto:**\n\n")
	fmt.Fprintf(&b, "**Stile:** %s\n\n", lexicon.ResolveStyle(s.Style).Label)
	b.WriteString("**Elementi da aggiungere:**\n")
	writeBullets(&b, s.ElementsToAdd)
	if s.ElementsToExclude.Len() > 0 {
		b.WriteString("\n**Da NON inserire:**\n")
		writeBullets(&b, s.ElementsToExclude)
	}
	b.WriteString("\n**Da preservare:** casa e strutture esistenti")
	if extra := s.PreserveExtra.Items(); len(extra) > 0 {
		fmt.Fprintf(&b, ", %s", strings.Join(extra, ", "))
	}
	b.WriteString("\n\nVuoi che generi il rendering? Scrivi **\"genera\"** o **\"ok\"** per procedere.\n\nOppure aggiungi altri dettagli o modifiche!")
	return b.String()
}

func writeBullets(b *strings.Builder, set *orderedset.Set) {
	for _, item := range set.Items() {
		fmt.Fprintf(b, "  • %s\n", item)
	}
}
