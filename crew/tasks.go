package crew

import (
	"fmt"
	"strings"

	"github.com/KamdynS/heartcrew/agent/core"
)

// Task names
const (
	DiagnoseTaskName  = "diagnose_patient"
	TreatmentTaskName = "suggest_treatment"
)

// PreviousDiagnosis is the treatment task's diagnosis placeholder when the
// diagnosis comes from the preceding task's output.
const PreviousDiagnosis = "Use the diagnosis results from the previous task"

const tip = "Focus only on heart-related symptoms and conditions."

// Task is one unit of work assigned to an agent.
type Task struct {
	Name           string
	Description    string
	ExpectedOutput string
	Agent          core.Agent
	// AgentName labels outputs; it defaults to the agent's Name when the
	// agent has one
	AgentName string
}

func (t Task) agentName() string {
	if t.AgentName != "" {
		return t.AgentName
	}
	if n, ok := t.Agent.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}

// Prompt renders the task for its agent, followed by the outputs of the
// tasks that ran before it.
func (t Task) Prompt(previous []TaskOutput) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(t.Description))
	if t.ExpectedOutput != "" {
		b.WriteString("\n\nThis is the expected criteria for your final answer: ")
		b.WriteString(t.ExpectedOutput)
	}
	if len(previous) > 0 {
		b.WriteString("\n\nThis is the context you're working with:")
		for _, p := range previous {
			fmt.Fprintf(&b, "\n\n[%s by %s]\n%s", p.Task, p.Agent, p.Output)
		}
	}
	return b.String()
}

// DiagnoseTask asks agent to diagnose the patient with the heart tools.
func DiagnoseTask(agent core.Agent, patientData string) Task {
	desc := `**Task**: Diagnose Heart Condition
**Description**: Analyze the patient's heart-related symptoms and identify if there is a problem.

IMPORTANT: Use the "Heart Disease Predictor" tool to get ML-based predictions
and combine this with your medical expertise.

Steps:
1. First, use the Heart Disease Predictor tool with the patient data
2. Analyze the ML prediction results
3. Combine ML insights with your medical knowledge
4. If a specific condition is predicted, use the Heart Condition Image Display tool to show relevant imagery
5. Provide final diagnosis

Output format: Either "Healthy heart" or "Sick with [specific heart condition and affected part]".

**Patient Data**: ` + patientData + `

**Available Tools**:
- Heart Disease Predictor: Use this to get ML-based diagnosis
- Heart Condition Image Display: Use this to show relevant medical imagery

**Note**: ` + tip
	return Task{
		Name:           DiagnoseTaskName,
		Description:    desc,
		ExpectedOutput: `Either "Healthy heart" or "Sick with [heart condition] affecting [heart part]", including ML prediction results and medical imagery when applicable.`,
		Agent:          agent,
	}
}

// TreatmentTask asks agent for a treatment plan. An empty diagnosis means
// the plan builds on the previous task's output.
func TreatmentTask(agent core.Agent, diagnosis string) Task {
	if strings.TrimSpace(diagnosis) == "" {
		diagnosis = PreviousDiagnosis
	}
	desc := `**Task**: Suggest Heart Treatment Plan
**Description**: Based on the diagnosis from the previous task, suggest a comprehensive treatment plan.
Focus on the specific heart condition identified and the affected heart parts.

Include:
- Specific medications for the diagnosed condition
- Lifestyle changes tailored to the heart condition
- Treatment duration and follow-up schedule
- Emergency signs to watch for

**Diagnosis from previous task**: ` + diagnosis + `

**Note**: ` + tip
	return Task{
		Name:           TreatmentTaskName,
		Description:    desc,
		ExpectedOutput: "Comprehensive treatment plan with specific medications, lifestyle recommendations, and monitoring schedule tailored for the diagnosed heart condition.",
		Agent:          agent,
	}
}
