package console

const msgWelcome = `smartfox: клиент платформы экспериментов. Введите help, чтобы увидеть команды.`

const msgTeacherHelp = `Команды преподавателя:

  list [active|expired] [page]   список ваших экспериментов
  create <file.json|yaml>        создать эксперимент из файла
  edit <experiment_id> <file>    обновить эксперимент из файла
                                 (вопросы с question_id меняются, остальные удаляются)
  delete <experiment_id>         удалить эксперимент
  files <experiment_id>          файлы эксперимента
  rm-file <experiment_id> <name> удалить файл эксперимента
  review <experiment_id> <student_id>
                                 работа студента
  export <experiment_id> [file]  результаты в CSV
  notify <title> | <content> [| id,id]
                                 отправить объявление
  notifications                  ваши объявления
  students [group_id]            список студентов
  groups                         список групп
  new-group <name> <student_id>...
                                 создать группу
  edit-group <group_id> <name> [student_id]...
                                 переименовать группу и задать состав
  delete-group <group_id>        удалить группу`

const msgStudentHelp = `Команды студента:

  list [active|expired] [page]   назначенные эксперименты
  open <experiment_id>           открыть эксперимент
  show                           вопросы и ваши ответы
  answer <n> <text>              ответ на вопрос n (для выбора можно букву A-F)
  code <n> <file>                код из файла как ответ на вопрос n
  lang <n> <language>            язык ответа на вопрос n (cpp, python, java)
  save                           сохранить и вернуться к списку
  submit                         отправить на проверку
  status                         состояние автосохранения и отправки
  close                          закрыть эксперимент
  files [experiment_id]          файлы эксперимента
  download <name> [dir]          скачать файл открытого эксперимента
  results <experiment_id>        результат проверки
  history                        история отправок
  notifications                  объявления`

const msgCommonHelp = `Общие команды:

  login <name> <password>        войти
  register <name> <password> <teacher|student>
                                 зарегистрироваться
  logout                         выйти
  whoami                         текущий пользователь
  help                           эта справка
  quit                           выход`

const msgLoginFirst = `Сначала войдите: login <name> <password>`

const msgLoggedOut = `Сессия завершена, войдите снова.`

const msgWrongRole = `Команда недоступна для вашей роли.`

const msgUnknownCommand = `Неизвестная команда. Введите help.`

const msgNoSession = `Эксперимент не открыт: open <experiment_id>`

const msgSaved = `Ответы сохранены.`

const msgSubmitted = `Работа отправлена на проверку!`

const msgDeadlinePassed = `Срок сдачи прошел, отправка недоступна.`

const msgFinalized = `Работа уже отправлена, ответы менять нельзя.`

const msgUsage = `Использование: %s`

const msgRequestFailed = `Запрос не выполнен, попробуйте позже.`
