package apiclient

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	TestID    string `json:"testId"`
	CollegeID string `json:"collegeId"`
}

type LoginResponse struct {
	StudentID    string `json:"studentId"`
	AccessToken  string `json:"student_access_token"`
	RefreshToken string `json:"student_refresh_token"`
	Message      string `json:"message"`
}

type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Degree     string `json:"degree"`
	University string `json:"university"`
	Gender     string `json:"gender"`
	Password   string `json:"password"`
	TestID     string `json:"testId"`
	CollegeID  string `json:"collegeId"`
}

type RegisterResponse struct {
	StudentID string `json:"studentId"`
	Token     string `json:"token"`
}

type TestDetails struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	College        string   `json:"college"`
	CollegeID      string   `json:"collegeId"`
	Duration       int      `json:"duration"`
	TotalQuestions int      `json:"totalQuestions"`
	PassingScore   float64  `json:"passingScore"`
	AllowRetake    bool     `json:"allowRetake"`
	Instructions   []string `json:"instructions"`
	Rules          []string `json:"rules"`
}

type Question struct {
	ID             string   `json:"_id"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	SelectedAnswer int      `json:"selectedAnswer"`
	TimeSpent      int      `json:"timeSpent"`
}

type StartResponse struct {
	SessionID        string     `json:"sessionId"`
	TestID           string     `json:"testId"`
	CollegeID        string     `json:"collegeId"`
	DurationSeconds  int        `json:"durationSeconds"`
	RemainingSeconds int        `json:"remainingSeconds"`
	Resumed          bool       `json:"resumed"`
	Questions        []Question `json:"questions"`
}

// Answer 单题作答；TimeSpent 是交互次数，不是秒数
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer int    `json:"selectedAnswer"`
	TimeSpent      int    `json:"timeSpent"`
}

type SubmitRequest struct {
	SessionID string   `json:"sessionId"`
	Answers   []Answer `json:"answers"`
}

type SubmitResult struct {
	SessionID      string  `json:"sessionId"`
	Score          int     `json:"score"`
	Percentage     float64 `json:"percentage"`
	TotalQuestions int     `json:"totalQuestions"`
	Passed         bool    `json:"passed"`
	IsTimeout      bool    `json:"isTimeout"`
}
